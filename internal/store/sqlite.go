package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ssd-technologies/swarmnet/internal/crypto"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// ErrWrongPassphrase is returned by NewDB when tokenPassphrase does not
// match the passphrase a database was first created with.
var ErrWrongPassphrase = errors.New("store: wrong token passphrase")

// DB is a SQLite-backed implementation of every persistence contract the
// core's components depend on. Auth tokens are encrypted at rest with
// AES-256-GCM, keyed from tokenPassphrase via the Argon2 KDF under the
// "auth-token" domain. The passphrase itself is checked against a stored
// hash on open so a wrong passphrase fails fast.
type DB struct {
	db              *sql.DB
	tokenPassphrase string
}

// NewDB opens (or creates) a SQLite database at path, runs schema
// migrations, and checks tokenPassphrase with checkPassphrase. The
// passphrase is kept on the DB; the at-rest key for each stored auth token
// is derived from it when that token is encrypted or decrypted.
func NewDB(path, tokenPassphrase string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{db: sqlDB, tokenPassphrase: tokenPassphrase}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := d.checkPassphrase(tokenPassphrase); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// checkPassphrase verifies tokenPassphrase against the hash recorded the
// first time this database was opened, or records it if this is the first
// open. This catches a mismatched passphrase immediately instead of
// surfacing it later as an opaque GCM authentication failure when an auth
// token is first decrypted.
func (d *DB) checkPassphrase(tokenPassphrase string) error {
	var stored []byte
	err := d.db.QueryRow(`SELECT hash FROM passphrase_check WHERE id = 1`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := d.db.Exec(`INSERT INTO passphrase_check (id, hash) VALUES (1, ?)`, crypto.HashPassword(tokenPassphrase))
		if err != nil {
			return fmt.Errorf("record passphrase check: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load passphrase check: %w", err)
	}
	if !crypto.VerifyPassword(tokenPassphrase, stored) {
		return ErrWrongPassphrase
	}
	return nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS swarm_cache (
    pub_key TEXT NOT NULL,
    address TEXT NOT NULL,
    port INTEGER NOT NULL,
    PRIMARY KEY (pub_key, address, port)
);

CREATE TABLE IF NOT EXISTS auth_tokens (
    server TEXT PRIMARY KEY,
    cipher TEXT NOT NULL,
    ciphertext BLOB NOT NULL,
    salt BLOB NOT NULL,
    nonce BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS passphrase_check (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    hash BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS last_message_hash (
    target TEXT PRIMARY KEY,
    hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS received_hashes (
    hash TEXT PRIMARY KEY,
    seen_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS opengroup_cursors (
    channel TEXT NOT NULL,
    server TEXT NOT NULL,
    last_message_id INTEGER DEFAULT 0,
    last_deletion_id INTEGER DEFAULT 0,
    user_count INTEGER DEFAULT 0,
    avatar_url TEXT,
    PRIMARY KEY (channel, server)
);

CREATE INDEX IF NOT EXISTS idx_swarm_cache_pubkey ON swarm_cache(pub_key);
CREATE INDEX IF NOT EXISTS idx_received_hashes_seen ON received_hashes(seen_at);`
	_, err := d.db.Exec(schema)
	return err
}

// --- Swarm cache (swarm.CacheStore) ---

// GetSwarmCache returns the persisted swarm for a public key.
func (d *DB) GetSwarmCache(key string) ([]swarm.ServiceNode, bool) {
	rows, err := d.db.Query(`SELECT address, port FROM swarm_cache WHERE pub_key = ?`, key)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var nodes []swarm.ServiceNode
	for rows.Next() {
		var n swarm.ServiceNode
		if err := rows.Scan(&n.Address, &n.Port); err != nil {
			return nil, false
		}
		nodes = append(nodes, n)
	}
	if rows.Err() != nil || len(nodes) == 0 {
		return nil, false
	}
	return nodes, true
}

// SetSwarmCache replaces the persisted swarm for a public key.
func (d *DB) SetSwarmCache(key string, nodes []swarm.ServiceNode) {
	tx, err := d.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM swarm_cache WHERE pub_key = ?`, key); err != nil {
		return
	}
	for _, n := range nodes {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO swarm_cache (pub_key, address, port) VALUES (?, ?, ?)`,
			key, n.Address, n.Port,
		); err != nil {
			return
		}
	}
	tx.Commit() //nolint:errcheck
}

// --- Auth tokens ---

// authTokenPurpose domain-separates the KDF used for cached bearer tokens
// from the one used for the passphrase check itself.
const authTokenPurpose = "auth-token"

// GetAuthToken decrypts and returns the cached bearer token for a server.
func (d *DB) GetAuthToken(server string) (string, bool) {
	var row authTokenRow
	err := d.db.QueryRow(
		`SELECT cipher, ciphertext, salt, nonce FROM auth_tokens WHERE server = ?`, server,
	).Scan(&row.Cipher, &row.Ciphertext, &row.Salt, &row.Nonce)
	if err != nil || row.Cipher != crypto.CipherAES {
		return "", false
	}

	plaintext, err := crypto.DecryptAtRest(row.Ciphertext, d.tokenPassphrase, authTokenPurpose, row.Salt, row.Nonce)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// SetAuthToken encrypts and persists a bearer token for a server.
func (d *DB) SetAuthToken(server, token string) error {
	ciphertext, salt, nonce, err := crypto.EncryptAtRest([]byte(token), d.tokenPassphrase, authTokenPurpose)
	if err != nil {
		return fmt.Errorf("encrypt auth token: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO auth_tokens (server, cipher, ciphertext, salt, nonce) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(server) DO UPDATE SET cipher=excluded.cipher, ciphertext=excluded.ciphertext, salt=excluded.salt, nonce=excluded.nonce`,
		server, crypto.CipherAES, ciphertext, salt, nonce,
	)
	if err != nil {
		return fmt.Errorf("set auth token: %w", err)
	}
	return nil
}

// ClearAuthToken invalidates a cached token, e.g. after a 401.
func (d *DB) ClearAuthToken(server string) error {
	_, err := d.db.Exec(`DELETE FROM auth_tokens WHERE server = ?`, server)
	if err != nil {
		return fmt.Errorf("clear auth token: %w", err)
	}
	return nil
}

// --- Last message hash (storage-RPC polling cursor) ---

// GetLastMessageHashValue returns the last-seen message hash for a target
// service node.
func (d *DB) GetLastMessageHashValue(target string) (string, bool) {
	var hash string
	err := d.db.QueryRow(`SELECT hash FROM last_message_hash WHERE target = ?`, target).Scan(&hash)
	if err != nil {
		return "", false
	}
	return hash, true
}

// SetLastMessageHashValue records the most recent message hash seen from a
// target service node.
func (d *DB) SetLastMessageHashValue(target, hash string) {
	d.db.Exec( //nolint:errcheck
		`INSERT INTO last_message_hash (target, hash) VALUES (?, ?)
		 ON CONFLICT(target) DO UPDATE SET hash=excluded.hash`,
		target, hash,
	)
}

// --- Received hash set (dedup) ---

// GetReceivedMessageHashValues returns every hash recorded as already
// delivered to the caller.
func (d *DB) GetReceivedMessageHashValues() (map[string]bool, error) {
	rows, err := d.db.Query(`SELECT hash FROM received_hashes`)
	if err != nil {
		return nil, fmt.Errorf("get received hashes: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan received hash: %w", err)
		}
		seen[h] = true
	}
	return seen, rows.Err()
}

// SetReceivedMessageHashValue records hash as delivered, together with its
// observation time so a pruning policy may later cap growth by age.
func (d *DB) SetReceivedMessageHashValue(hash string, seenAtUnix int64) {
	d.db.Exec( //nolint:errcheck
		`INSERT OR IGNORE INTO received_hashes (hash, seen_at) VALUES (?, ?)`,
		hash, seenAtUnix,
	)
}

// PruneReceivedMessageHashValues deletes hashes observed before cutoffUnix.
// ReceivedHashSet growth is otherwise unbounded; this is an optional policy
// callers may apply periodically, since the swarm only ever redelivers
// hashes still within its own retention window.
func (d *DB) PruneReceivedMessageHashValues(cutoffUnix int64) {
	d.db.Exec(`DELETE FROM received_hashes WHERE seen_at < ?`, cutoffUnix) //nolint:errcheck
}

// --- Open-group cursors ---

func (d *DB) ensureCursorRow(channel, server string) {
	d.db.Exec( //nolint:errcheck
		`INSERT OR IGNORE INTO opengroup_cursors (channel, server) VALUES (?, ?)`,
		channel, server,
	)
}

// GetLastMessageServerID returns the highest open-group message id seen
// for a channel on a server.
func (d *DB) GetLastMessageServerID(channel, server string) (int64, bool) {
	var id int64
	err := d.db.QueryRow(
		`SELECT last_message_id FROM opengroup_cursors WHERE channel = ? AND server = ?`, channel, server,
	).Scan(&id)
	if err != nil {
		return 0, false
	}
	return id, id != 0
}

// SetLastMessageServerID persists the polling cursor for open-group
// messages.
func (d *DB) SetLastMessageServerID(channel, server string, id int64) {
	d.ensureCursorRow(channel, server)
	d.db.Exec( //nolint:errcheck
		`UPDATE opengroup_cursors SET last_message_id = ? WHERE channel = ? AND server = ?`,
		id, channel, server,
	)
}

// GetLastDeletionServerID returns the polling cursor for open-group
// deletions.
func (d *DB) GetLastDeletionServerID(channel, server string) (int64, bool) {
	var id int64
	err := d.db.QueryRow(
		`SELECT last_deletion_id FROM opengroup_cursors WHERE channel = ? AND server = ?`, channel, server,
	).Scan(&id)
	if err != nil {
		return 0, false
	}
	return id, id != 0
}

// SetLastDeletionServerID persists the polling cursor for open-group
// deletions.
func (d *DB) SetLastDeletionServerID(channel, server string, id int64) {
	d.ensureCursorRow(channel, server)
	d.db.Exec( //nolint:errcheck
		`UPDATE opengroup_cursors SET last_deletion_id = ? WHERE channel = ? AND server = ?`,
		id, channel, server,
	)
}

// SetUserCount persists the subscriber count last reported for a channel.
func (d *DB) SetUserCount(channel, server string, n int) {
	d.ensureCursorRow(channel, server)
	d.db.Exec( //nolint:errcheck
		`UPDATE opengroup_cursors SET user_count = ? WHERE channel = ? AND server = ?`,
		n, channel, server,
	)
}

// GetOpenGroupAvatarURL returns the last-known channel avatar URL.
func (d *DB) GetOpenGroupAvatarURL(channel, server string) (string, bool) {
	var url sql.NullString
	err := d.db.QueryRow(
		`SELECT avatar_url FROM opengroup_cursors WHERE channel = ? AND server = ?`, channel, server,
	).Scan(&url)
	if err != nil || !url.Valid {
		return "", false
	}
	return url.String, true
}

// SetOpenGroupAvatarURL persists the channel avatar URL.
func (d *DB) SetOpenGroupAvatarURL(channel, server, url string) {
	d.ensureCursorRow(channel, server)
	d.db.Exec( //nolint:errcheck
		`UPDATE opengroup_cursors SET avatar_url = ? WHERE channel = ? AND server = ?`,
		url, channel, server,
	)
}
