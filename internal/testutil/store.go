package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Fixture is a disposable notes database seeded by tests. The modern
// layout mirrors current stores (encrypted-record marker column, inline
// object rows); the legacy layout mirrors pre-modern plain-text stores.
type Fixture struct {
	t    *testing.T
	Path string
	db   *sql.DB
}

const modernDDL = `
CREATE TABLE ZICCLOUDSYNCINGOBJECT (
	Z_PK INTEGER PRIMARY KEY,
	ZNAME TEXT,
	ZIDENTIFIER TEXT,
	ZUSERRECORDNAME TEXT,
	ZTITLE1 TEXT,
	ZTITLE2 TEXT,
	ZOWNER INTEGER,
	ZPARENT INTEGER,
	ZFOLDER INTEGER,
	ZACCOUNT7 INTEGER,
	ZCREATIONDATE3 REAL,
	ZMODIFICATIONDATE1 REAL,
	ZISPINNED INTEGER,
	ZISPASSWORDPROTECTED INTEGER,
	ZTITLE TEXT,
	ZFILENAME TEXT,
	ZFILESIZE INTEGER,
	ZTYPEUTI TEXT,
	ZNOTE INTEGER,
	ZNOTE1 INTEGER,
	ZATTACHMENT INTEGER,
	ZCREATIONDATE REAL,
	ZMODIFICATIONDATE REAL,
	ZREMOTEFILEURLSTRING TEXT,
	ZTYPEUTI1 TEXT,
	ZALTTEXT TEXT,
	ZTOKENCONTENTIDENTIFIER TEXT,
	ZUNAPPLIEDENCRYPTEDRECORDDATA BLOB
);
CREATE TABLE ZICNOTEDATA (
	Z_PK INTEGER PRIMARY KEY,
	ZNOTE INTEGER,
	ZDATA BLOB
);
CREATE TABLE Z_METADATA (
	Z_VERSION INTEGER,
	Z_UUID VARCHAR,
	Z_PLIST BLOB
);
`

const legacyDDL = `
CREATE TABLE ZNOTE (
	Z_PK INTEGER PRIMARY KEY,
	ZTITLE TEXT,
	ZBODY INTEGER,
	ZSTORE INTEGER,
	ZCREATIONDATE REAL,
	ZMODIFICATIONDATE REAL
);
CREATE TABLE ZNOTEBODY (
	Z_PK INTEGER PRIMARY KEY,
	ZCONTENT TEXT
);
CREATE TABLE ZSTORE (
	Z_PK INTEGER PRIMARY KEY,
	ZNAME TEXT,
	ZACCOUNT INTEGER
);
CREATE TABLE ZACCOUNT (
	Z_PK INTEGER PRIMARY KEY,
	ZNAME TEXT,
	ZACCOUNTIDENTIFIER TEXT
);
CREATE TABLE Z_METADATA (
	Z_VERSION INTEGER,
	Z_UUID VARCHAR,
	Z_PLIST BLOB
);
`

// NewFixture creates a modern-layout database in a temp directory and
// returns the builder. The file is removed with the test's temp dir.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return newFixture(t, modernDDL)
}

// NewLegacyFixture creates a pre-modern plain-text database.
func NewLegacyFixture(t *testing.T) *Fixture {
	t.Helper()
	return newFixture(t, legacyDDL)
}

func newFixture(t *testing.T, ddl string) *Fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NoteStore.sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	f := &Fixture{t: t, Path: path, db: db}
	f.SetUUID("12345678-ABCD-ABCD-ABCD-123456789012")
	return f
}

// SetUUID replaces the store UUID in the metadata table.
func (f *Fixture) SetUUID(uuid string) {
	f.t.Helper()
	f.exec(`DELETE FROM Z_METADATA`)
	f.exec(`INSERT INTO Z_METADATA (Z_VERSION, Z_UUID) VALUES (1, ?)`, uuid)
}

// AddAccount inserts an account row.
func (f *Fixture) AddAccount(pk int64, name, identifier string) {
	f.t.Helper()
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZNAME, ZIDENTIFIER) VALUES (?, ?, ?)`,
		pk, name, identifier)
}

// AddFolder inserts a folder row. parent may be zero for root folders.
func (f *Fixture) AddFolder(pk int64, name string, owner, parent int64) {
	f.t.Helper()
	var parentArg any
	if parent != 0 {
		parentArg = parent
	}
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZTITLE2, ZOWNER, ZIDENTIFIER, ZPARENT) VALUES (?, ?, ?, ?, ?)`,
		pk, name, owner, "folder-"+name, parentArg)
}

// NoteSeed describes one modern note: its metadata row plus payload row.
type NoteSeed struct {
	PK        int64 // syncing-object primary key
	DataPK    int64 // payload row primary key
	Title     string
	Payload   []byte
	Account   int64
	Folder    int64
	Created   float64
	Modified  float64
	Pinned    bool
	Protected bool
	UUID      string
}

// AddNote inserts a note metadata row and its payload row.
func (f *Fixture) AddNote(seed NoteSeed) {
	f.t.Helper()
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZTITLE1, ZACCOUNT7, ZFOLDER, ZCREATIONDATE3, ZMODIFICATIONDATE1, ZISPINNED, ZISPASSWORDPROTECTED, ZIDENTIFIER)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seed.PK, seed.Title, seed.Account, seed.Folder, seed.Created, seed.Modified,
		boolInt(seed.Pinned), boolInt(seed.Protected), seed.UUID)
	f.exec(`INSERT INTO ZICNOTEDATA (Z_PK, ZNOTE, ZDATA) VALUES (?, ?, ?)`,
		seed.DataPK, seed.PK, seed.Payload)
}

// AddAttachment inserts an attachment metadata row owned by a note.
func (f *Fixture) AddAttachment(pk, noteID int64, filename, uti, identifier string, size int64) {
	f.t.Helper()
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZNOTE, ZFILENAME, ZTYPEUTI, ZIDENTIFIER, ZFILESIZE)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pk, noteID, filename, uti, identifier, size)
}

// AddTitledAttachment inserts an attachment row named through ZTITLE
// instead of ZFILENAME, as some real rows are.
func (f *Fixture) AddTitledAttachment(pk, noteID int64, title, uti, identifier string) {
	f.t.Helper()
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZNOTE, ZTITLE, ZTYPEUTI, ZIDENTIFIER)
		VALUES (?, ?, ?, ?, ?)`,
		pk, noteID, title, uti, identifier)
}

// AddInline inserts an inline object row (hashtag, mention, or link).
func (f *Fixture) AddInline(pk, noteID int64, uti, altText, token string) {
	f.t.Helper()
	f.exec(`INSERT INTO ZICCLOUDSYNCINGOBJECT
		(Z_PK, ZNOTE, ZTYPEUTI1, ZALTTEXT, ZTOKENCONTENTIDENTIFIER)
		VALUES (?, ?, ?, ?, ?)`,
		pk, noteID, uti, altText, token)
}

// AddLegacyAccount inserts an account into the pre-modern account table.
func (f *Fixture) AddLegacyAccount(pk int64, name, identifier string) {
	f.t.Helper()
	f.exec(`INSERT INTO ZACCOUNT (Z_PK, ZNAME, ZACCOUNTIDENTIFIER) VALUES (?, ?, ?)`,
		pk, name, identifier)
}

// AddLegacyStore inserts a pre-modern store row, which doubles as a folder.
func (f *Fixture) AddLegacyStore(pk int64, name string, account int64) {
	f.t.Helper()
	f.exec(`INSERT INTO ZSTORE (Z_PK, ZNAME, ZACCOUNT) VALUES (?, ?, ?)`,
		pk, name, account)
}

// AddLegacyNote inserts a pre-modern note with its plain-text body.
func (f *Fixture) AddLegacyNote(pk int64, title, body string, storePK int64, created, modified float64) {
	f.t.Helper()
	f.exec(`INSERT INTO ZNOTEBODY (Z_PK, ZCONTENT) VALUES (?, ?)`, pk, body)
	f.exec(`INSERT INTO ZNOTE (Z_PK, ZTITLE, ZBODY, ZSTORE, ZCREATIONDATE, ZMODIFICATIONDATE) VALUES (?, ?, ?, ?, ?, ?)`,
		pk, title, pk, storePK, created, modified)
}

func (f *Fixture) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.db.Exec(query, args...); err != nil {
		f.t.Fatalf("seed fixture: %v", err)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CoreSeconds converts a wall-clock time to the store's native timestamp
// unit: seconds since 2001-01-01 UTC.
func CoreSeconds(t time.Time) float64 {
	return float64(t.Unix() - 978307200)
}
