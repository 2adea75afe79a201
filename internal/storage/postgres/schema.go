package postgres

const schema = `
CREATE TABLE IF NOT EXISTS postings (
    uri TEXT PRIMARY KEY,
    message TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    source_user TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    indexed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    disciplines TEXT[] NOT NULL DEFAULT '{}',
    country TEXT NOT NULL DEFAULT '',
    position_type TEXT[] NOT NULL DEFAULT '{}',
    is_verified_job BOOLEAN NOT NULL DEFAULT FALSE,
    duplicate_of TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_postings_source ON postings(source);
CREATE INDEX IF NOT EXISTS idx_postings_created_at ON postings(created_at);
CREATE INDEX IF NOT EXISTS idx_postings_duplicate_of ON postings(duplicate_of);
CREATE INDEX IF NOT EXISTS idx_postings_verified ON postings(is_verified_job);
`
