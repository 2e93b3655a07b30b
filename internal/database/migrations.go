package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(255) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents(collection, (data->>'projectId'))`,
	`CREATE INDEX IF NOT EXISTS idx_documents_invite_code ON documents((data->>'inviteCode')) WHERE collection = 'projects'`,
	`CREATE INDEX IF NOT EXISTS idx_documents_email ON documents((data->>'email')) WHERE collection = 'users'`,
	`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING gin (data jsonb_path_ops)`,

	// Change notifications for cross-process live queries
	`CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
	DECLARE
		row_collection TEXT;
		row_id TEXT;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			row_collection := OLD.collection;
			row_id := OLD.id;
		ELSE
			row_collection := NEW.collection;
			row_id := NEW.id;
		END IF;
		PERFORM pg_notify('document_changes', row_collection || '/' || row_id);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS documents_notify ON documents`,
	`CREATE TRIGGER documents_notify
		AFTER INSERT OR UPDATE OR DELETE ON documents
		FOR EACH ROW EXECUTE FUNCTION notify_document_change()`,
}

// NotifyChannel is the LISTEN channel fed by the documents trigger.
const NotifyChannel = "document_changes"

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
