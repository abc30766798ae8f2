// Package schema detects which historical store layout wrote a catalog.
//
// Store versions are distinguished by marker columns that accreted over time
// on the syncing-object table. Newer layouts keep every older marker, so the
// probe table is evaluated newest to oldest and the first hit wins; probing
// the other way would classify every modern store as ancient.
package schema

import (
	"github.com/starford/othala/internal/apperr"
)

// Well-known table names shared by every modern store version.
const (
	objectTable   = "ZICCLOUDSYNCINGOBJECT"
	noteDataTable = "ZICNOTEDATA"
	metadataTable = "Z_METADATA"

	legacyNoteTable    = "ZNOTE"
	legacyBodyTable    = "ZNOTEBODY"
	legacyStoreTable   = "ZSTORE"
	legacyAccountTable = "ZACCOUNT"
)

// ColumnSet is the set of column names present on one table.
type ColumnSet map[string]struct{}

// Catalog maps table names to their column sets, as reflected from an
// opened store. It is the detector's only input.
type Catalog map[string]ColumnSet

// HasTable reports whether the catalog contains the table.
func (c Catalog) HasTable(table string) bool {
	_, ok := c[table]
	return ok
}

// HasColumn reports whether the table exists and carries the column.
func (c Catalog) HasColumn(table, column string) bool {
	cols, ok := c[table]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// TableNames holds the concrete table names a profile reads from.
type TableNames struct {
	Objects  string // accounts, folders, attachments, note metadata
	NoteData string // per-note payload rows
	Metadata string // store UUID

	// Legacy layout (pre-modern stores only).
	Notes    string
	Bodies   string
	Stores   string
	Accounts string
}

// ColumnNames holds the version-dependent columns of the modern note query.
type ColumnNames struct {
	Account  string
	Creation string
}

// ProbeResult records one probe evaluation, in the order probes ran.
type ProbeResult struct {
	Label   string `json:"label"`
	Marker  string `json:"marker"`
	Matched bool   `json:"matched"`
}

// Profile identifies a detected store version. It is built once per store
// open, never mutated, and safe to share across concurrent decodes.
type Profile struct {
	Version int
	Label   string

	// Legacy marks pre-modern stores: plain-text bodies, no payload
	// compression, no attachment rows.
	Legacy bool

	Tables  TableNames
	Columns ColumnNames

	// UsesGeneration marks stores whose payload rows carry a generation
	// column alongside the data.
	UsesGeneration bool

	// HasInlineObjects marks stores that materialize hashtags and mentions
	// as inline attachment rows in the catalog.
	HasInlineObjects bool

	// Trail is the full probe evaluation record that produced this profile.
	Trail []ProbeResult
}

// probe is one entry of the ordered detection table. markerColumn is tested
// on the syncing-object table unless markerTable is set, in which case the
// probe tests for the table's existence instead.
type probe struct {
	label        string
	version      int
	markerColumn string
	markerTable  string
	columns      ColumnNames
	generation   bool
	inline       bool
}

// probes runs newest to oldest. Supporting a new store version means
// appending one entry here; nothing downstream branches on versions.
var probes = []probe{
	{label: "v18", version: 18, markerColumn: "ZUNAPPLIEDENCRYPTEDRECORDDATA",
		columns: ColumnNames{Account: "ZACCOUNT7", Creation: "ZCREATIONDATE3"}, inline: true},
	{label: "v17", version: 17, markerColumn: "ZGENERATION",
		columns: ColumnNames{Account: "ZACCOUNT7", Creation: "ZCREATIONDATE3"}, generation: true, inline: true},
	{label: "v16", version: 16, markerColumn: "ZACCOUNT6",
		columns: ColumnNames{Account: "ZACCOUNT7", Creation: "ZCREATIONDATE3"}, inline: true},
	{label: "v15", version: 15, markerColumn: "ZACCOUNT5",
		columns: ColumnNames{Account: "ZACCOUNT4", Creation: "ZCREATIONDATE3"}, inline: true},
	{label: "v14", version: 14, markerColumn: "ZLASTOPENEDDATE",
		columns: ColumnNames{Account: "ZACCOUNT3", Creation: "ZCREATIONDATE1"}},
	{label: "v13", version: 13, markerColumn: "ZACCOUNT4",
		columns: ColumnNames{Account: "ZACCOUNT3", Creation: "ZCREATIONDATE1"}},
	{label: "v12", version: 12, markerColumn: "ZSERVERRECORDDATA",
		columns: ColumnNames{Account: "ZACCOUNT2", Creation: "ZCREATIONDATE1"}},
	{label: "v11", version: 11, markerTable: "Z_11NOTES",
		columns: ColumnNames{Account: "ZACCOUNT2", Creation: "ZCREATIONDATE1"}},
}

// Detect evaluates the probe table against the catalog and returns the
// matching profile. Stores older than every probe fall back to the legacy
// layout when its tables are present; a catalog with neither layout fails
// with apperr.ErrUnrecognizedSchema.
//
// Detection is a pure function of the catalog: same input, same profile.
func Detect(catalog Catalog) (*Profile, error) {
	trail := make([]ProbeResult, 0, len(probes))

	for _, p := range probes {
		matched := false
		marker := p.markerColumn
		if p.markerTable != "" {
			marker = p.markerTable
			matched = catalog.HasTable(p.markerTable)
		} else {
			matched = catalog.HasColumn(objectTable, p.markerColumn)
		}
		trail = append(trail, ProbeResult{Label: p.label, Marker: marker, Matched: matched})
		if matched {
			return &Profile{
				Version: p.version,
				Label:   p.label,
				Tables: TableNames{
					Objects:  objectTable,
					NoteData: noteDataTable,
					Metadata: metadataTable,
				},
				Columns:          p.columns,
				UsesGeneration:   p.generation,
				HasInlineObjects: p.inline,
				Trail:            trail,
			}, nil
		}
	}

	// Pre-modern stores carry none of the marker columns; only reject the
	// store when the legacy tables are missing too.
	if catalog.HasTable(legacyNoteTable) && catalog.HasTable(legacyBodyTable) && catalog.HasTable(legacyStoreTable) {
		return &Profile{
			Version: 9,
			Label:   "legacy",
			Legacy:  true,
			Tables: TableNames{
				Metadata: metadataTable,
				Notes:    legacyNoteTable,
				Bodies:   legacyBodyTable,
				Stores:   legacyStoreTable,
				Accounts: legacyAccountTable,
			},
			Trail: trail,
		}, nil
	}

	return nil, apperr.ErrUnrecognizedSchema
}
