package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

// NoteRow is one raw note payload row plus the catalog metadata joined to
// it. Payload decoding happens above this layer.
type NoteRow struct {
	ID        int64
	NoteID    int64
	Title     string
	Payload   []byte
	CreatedAt float64
	UpdatedAt float64
	AccountID int64
	FolderID  int64
	Pinned    bool
	Protected bool
	UUID      string

	// LegacyText is set instead of Payload on pre-modern stores, which
	// keep their bodies as plain text.
	LegacyText string
}

// Created converts the row's Core Data creation timestamp.
func (r NoteRow) Created() time.Time { return coreTime(r.CreatedAt) }

// Modified converts the row's Core Data modification timestamp.
func (r NoteRow) Modified() time.Time { return coreTime(r.UpdatedAt) }

// Accounts returns every account in the store, keyed by primary key.
func (s *Store) Accounts(profile *schema.Profile) (map[int64]*models.Account, error) {
	query := `
		SELECT Z_PK, ZNAME, ZIDENTIFIER, ZUSERRECORDNAME
		FROM ` + profile.Tables.Objects + `
		WHERE ZNAME IS NOT NULL`
	if profile.Legacy {
		query = `
		SELECT Z_PK, ZNAME, ZACCOUNTIDENTIFIER, NULL
		FROM ` + profile.Tables.Accounts
	}

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]*models.Account)
	for rows.Next() {
		var (
			pk                      int64
			name, ident, recordName sql.NullString
		)
		if err := rows.Scan(&pk, &name, &ident, &recordName); err != nil {
			return nil, fmt.Errorf("store: scan account: %w", err)
		}
		accounts[pk] = &models.Account{
			ID:             pk,
			Name:           name.String,
			Identifier:     ident.String,
			UserRecordName: recordName.String,
		}
	}
	return accounts, rows.Err()
}

// Folders returns every folder in the store, keyed by primary key.
func (s *Store) Folders(profile *schema.Profile) (map[int64]*models.Folder, error) {
	query := `
		SELECT Z_PK, ZTITLE2, ZOWNER, ZIDENTIFIER, ZPARENT
		FROM ` + profile.Tables.Objects + `
		WHERE ZTITLE2 IS NOT NULL`
	if profile.Legacy {
		query = `
		SELECT Z_PK, ZNAME, ZACCOUNT, '', NULL
		FROM ` + profile.Tables.Stores
	}

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: query folders: %w", err)
	}
	defer rows.Close()

	folders := make(map[int64]*models.Folder)
	for rows.Next() {
		var (
			pk              int64
			name, uuid      sql.NullString
			owner, parentID sql.NullInt64
		)
		if err := rows.Scan(&pk, &name, &owner, &uuid, &parentID); err != nil {
			return nil, fmt.Errorf("store: scan folder: %w", err)
		}
		folders[pk] = &models.Folder{
			ID:        pk,
			Name:      name.String,
			AccountID: owner.Int64,
			UUID:      uuid.String,
			ParentID:  parentID.Int64,
		}
	}
	return folders, rows.Err()
}

// Attachments returns attachment metadata rows grouped by owning note.
// Pre-modern stores have no attachment rows, so the legacy profile yields
// an empty map. Rows for inline objects (hashtags, mentions, links) carry
// ZTITLE1 and are excluded here; InlineObjects reads those.
func (s *Store) Attachments(profile *schema.Profile) (map[int64][]*models.Attachment, error) {
	byNote := make(map[int64][]*models.Attachment)
	if profile.Legacy {
		return byNote, nil
	}

	rows, err := s.conn.Query(`
		SELECT
			obj.Z_PK,
			COALESCE(obj.ZFILENAME, obj.ZTITLE),
			obj.ZFILESIZE,
			obj.ZTYPEUTI,
			obj.ZNOTE,
			obj.ZCREATIONDATE,
			obj.ZMODIFICATIONDATE,
			obj.ZIDENTIFIER,
			obj.ZREMOTEFILEURLSTRING
		FROM ` + profile.Tables.Objects + ` obj
		WHERE obj.ZNOTE IS NOT NULL
			AND (obj.ZFILENAME IS NOT NULL OR obj.ZTITLE IS NOT NULL OR obj.ZFILESIZE > 0 OR obj.ZTYPEUTI IS NOT NULL)
			AND obj.ZTITLE1 IS NULL
			AND (obj.ZTYPEUTI IS NOT NULL AND obj.ZTYPEUTI != '')`)
	if err != nil {
		return nil, fmt.Errorf("store: query attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pk, noteID                int64
			filename, uti, ident, url sql.NullString
			size                      sql.NullInt64
			created, modified         sql.NullFloat64
		)
		if err := rows.Scan(&pk, &filename, &size, &uti, &noteID, &created, &modified, &ident, &url); err != nil {
			return nil, fmt.Errorf("store: scan attachment: %w", err)
		}
		att := &models.Attachment{
			ID:         pk,
			NoteID:     noteID,
			Filename:   filename.String,
			FileSize:   size.Int64,
			TypeUTI:    uti.String,
			Identifier: ident.String,
			CreatedAt:  coreTime(created.Float64),
			ModifiedAt: coreTime(modified.Float64),
			IsRemote:   url.Valid,
			RemoteURL:  url.String,
		}
		byNote[noteID] = append(byNote[noteID], att)
	}
	return byNote, rows.Err()
}

// NoteRows returns every note's payload row joined with its metadata.
// The account and creation-date columns vary by store version; the
// profile carries the right names.
func (s *Store) NoteRows(profile *schema.Profile) ([]NoteRow, error) {
	if profile.Legacy {
		return s.legacyNoteRows(profile)
	}

	query := fmt.Sprintf(`
		SELECT
			nd.Z_PK,
			nd.ZNOTE,
			obj.ZTITLE1,
			nd.ZDATA,
			obj.%s,
			obj.ZMODIFICATIONDATE1,
			obj.%s,
			obj.ZFOLDER,
			obj.ZISPINNED,
			obj.ZIDENTIFIER,
			obj.ZISPASSWORDPROTECTED
		FROM %s nd
		JOIN %s obj ON nd.ZNOTE = obj.Z_PK
		WHERE nd.ZDATA IS NOT NULL`,
		profile.Columns.Creation, profile.Columns.Account,
		profile.Tables.NoteData, profile.Tables.Objects)

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: query notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var (
			pk, noteID        int64
			title, uuid       sql.NullString
			payload           []byte
			created, modified sql.NullFloat64
			account, folder   sql.NullInt64
			pinned, protected sql.NullInt64
		)
		if err := rows.Scan(&pk, &noteID, &title, &payload, &created, &modified,
			&account, &folder, &pinned, &uuid, &protected); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, NoteRow{
			ID:        pk,
			NoteID:    noteID,
			Title:     title.String,
			Payload:   payload,
			CreatedAt: created.Float64,
			UpdatedAt: modified.Float64,
			AccountID: account.Int64,
			FolderID:  folder.Int64,
			Pinned:    pinned.Int64 != 0,
			Protected: protected.Int64 != 0,
			UUID:      uuid.String,
		})
	}
	return out, rows.Err()
}

// legacyNoteRows reads pre-modern stores: bodies live as plain text in a
// separate table and the containing store doubles as both account link
// and folder.
func (s *Store) legacyNoteRows(profile *schema.Profile) ([]NoteRow, error) {
	query := fmt.Sprintf(`
		SELECT
			n.Z_PK,
			n.ZTITLE,
			nb.ZCONTENT,
			n.ZCREATIONDATE,
			n.ZMODIFICATIONDATE,
			s.ZACCOUNT,
			s.Z_PK
		FROM %s n
		JOIN %s nb ON n.ZBODY = nb.Z_PK
		JOIN %s s ON n.ZSTORE = s.Z_PK`,
		profile.Tables.Notes, profile.Tables.Bodies, profile.Tables.Stores)

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: query legacy notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var (
			pk                int64
			title, body       sql.NullString
			created, modified sql.NullFloat64
			account, folder   sql.NullInt64
		)
		if err := rows.Scan(&pk, &title, &body, &created, &modified, &account, &folder); err != nil {
			return nil, fmt.Errorf("store: scan legacy note: %w", err)
		}
		out = append(out, NoteRow{
			ID:         pk,
			NoteID:     pk,
			Title:      title.String,
			LegacyText: body.String,
			CreatedAt:  created.Float64,
			UpdatedAt:  modified.Float64,
			AccountID:  account.Int64,
			FolderID:   folder.Int64,
		})
	}
	return out, rows.Err()
}
