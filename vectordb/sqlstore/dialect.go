package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour of the backing database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// ResolveDialect maps a database/sql driver name to a dialect.
func ResolveDialect(driver string) Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		return DialectMySQL
	case "postgres", "postgresql", "pq", "pgx":
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

// Rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (d Dialect) createTable(table string) string {
	switch d {
	case DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	dataset_id      VARCHAR(255) NOT NULL,
	id              VARCHAR(64)  NOT NULL,
	document_key    VARCHAR(1024) NOT NULL,
	content         LONGTEXT,
	meta            LONGTEXT,
	embedding       LONGBLOB,
	embedding_model VARCHAR(255),
	updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (dataset_id, id)
)`, table)
	case DialectPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	dataset_id      TEXT NOT NULL,
	id              TEXT NOT NULL,
	document_key    TEXT NOT NULL,
	content         TEXT,
	meta            TEXT,
	embedding       BYTEA,
	embedding_model TEXT,
	updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (dataset_id, id)
)`, table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	dataset_id      TEXT NOT NULL,
	id              TEXT NOT NULL,
	document_key    TEXT NOT NULL,
	content         TEXT,
	meta            TEXT,
	embedding       BLOB,
	embedding_model TEXT,
	updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (dataset_id, id)
)`, table)
	}
}

func (d Dialect) upsert(table string) string {
	switch d {
	case DialectMySQL:
		return fmt.Sprintf(`INSERT INTO %s(dataset_id, id, document_key, content, meta, embedding, embedding_model, updated_at)
VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
ON DUPLICATE KEY UPDATE
document_key=VALUES(document_key),
content=VALUES(content),
meta=VALUES(meta),
embedding=VALUES(embedding),
embedding_model=VALUES(embedding_model),
updated_at=CURRENT_TIMESTAMP`, table)
	default:
		return d.Rebind(fmt.Sprintf(`INSERT INTO %s(dataset_id, id, document_key, content, meta, embedding, embedding_model, updated_at)
VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
ON CONFLICT(dataset_id, id) DO UPDATE SET
document_key=excluded.document_key,
content=excluded.content,
meta=excluded.meta,
embedding=excluded.embedding,
embedding_model=excluded.embedding_model,
updated_at=CURRENT_TIMESTAMP`, table))
	}
}
