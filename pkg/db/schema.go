package db

// Schema defines the SQLite schema for the write-session journal. One row is
// recorded per destructive write attempt.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_key TEXT NOT NULL UNIQUE,
    device_path TEXT NOT NULL,
    image_path TEXT NOT NULL,
    image_source TEXT NOT NULL,
    sha256 TEXT,
    status TEXT NOT NULL CHECK(status IN ('writing', 'success', 'failed')),
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_key ON sessions(session_key);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
`

// Status constants
const (
	StatusWriting = "writing"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Session represents one journaled write attempt.
type Session struct {
	ID           int64
	SessionKey   string
	DevicePath   string
	ImagePath    string
	ImageSource  string
	SHA256       string
	Status       string
	ErrorMessage string
	CreatedAt    string
	UpdatedAt    string
}
