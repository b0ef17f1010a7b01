package pgrecord

import "fmt"

const schemaExtension = `CREATE EXTENSION IF NOT EXISTS vector;`

const schemaTable = `
CREATE TABLE IF NOT EXISTS file_embeddings (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id      TEXT NOT NULL,
    file_name    TEXT NOT NULL,
    storage_path TEXT NOT NULL,
    content_text TEXT NOT NULL DEFAULT '',
    media_type   TEXT NOT NULL DEFAULT '',
    byte_size    BIGINT NOT NULL DEFAULT 0,
    embedding    VECTOR(%d) NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, file_name)
);`

const schemaVectorIndex = `
CREATE INDEX IF NOT EXISTS file_embeddings_embedding_idx
    ON file_embeddings USING hnsw (embedding vector_cosine_ops);`

// Each re-upload gets a fresh id, matching the Redis backend.
const upsertSQL = `
INSERT INTO file_embeddings
    (user_id, file_name, storage_path, content_text, media_type, byte_size, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, file_name) DO UPDATE
SET id           = gen_random_uuid(),
    storage_path = EXCLUDED.storage_path,
    content_text = EXCLUDED.content_text,
    media_type   = EXCLUDED.media_type,
    byte_size    = EXCLUDED.byte_size,
    embedding    = EXCLUDED.embedding,
    created_at   = EXCLUDED.created_at
RETURNING id::text;`

const selectColumns = `id::text, user_id, file_name, storage_path, content_text, media_type, byte_size, created_at`

const getSQL = `
SELECT ` + selectColumns + `, embedding
FROM file_embeddings
WHERE user_id = $1 AND file_name = $2;`

const existsSQL = `SELECT EXISTS (SELECT 1 FROM file_embeddings WHERE user_id = $1 AND file_name = $2);`

const deleteSQL = `DELETE FROM file_embeddings WHERE user_id = $1 AND file_name = $2;`

// The inner query orders and limits by distance alone so the planner can
// walk the HNSW index; the threshold applies to the nearest rows only.
const vectorSearchSQL = `
SELECT *
FROM (
    SELECT ` + selectColumns + `, 1 - (embedding <=> $1) AS similarity
    FROM file_embeddings
    WHERE user_id = $2
    ORDER BY embedding <=> $1 ASC
    LIMIT $4
) AS nearest
WHERE similarity >= $3
ORDER BY similarity DESC;`

const lexicalSearchSQL = `
SELECT ` + selectColumns + `
FROM file_embeddings
WHERE user_id = $1 AND (file_name ILIKE ANY($2) OR content_text ILIKE ANY($2))
ORDER BY created_at DESC
LIMIT $3;`

func createTableSQL(dims int) string {
	return fmt.Sprintf(schemaTable, dims)
}
