package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/othala/internal/schema"
)

// Inline attachment type identifiers. Newer stores materialize hashtags,
// mentions, and links typed inside note text as catalog rows with these
// UTIs, which makes them queryable without decoding any payload.
const (
	UTIHashtag = "com.apple.notes.inlinetextattachment.hashtag"
	UTIMention = "com.apple.notes.inlinetextattachment.mention"
	UTILink    = "com.apple.notes.inlinetextattachment.link"
)

// InlineObjects holds one note's inline hashtag, mention, and link rows.
type InlineObjects struct {
	Hashtags []string
	Mentions []string
	Links    []string
}

// InlineObjects returns the inline object rows for every note, keyed by
// note primary key. Stores without inline-object support yield an empty
// map. The owning note reference moved between columns across versions,
// so all three candidates are coalesced.
func (s *Store) InlineObjects(profile *schema.Profile) (map[int64]*InlineObjects, error) {
	byNote := make(map[int64]*InlineObjects)
	if !profile.HasInlineObjects {
		return byNote, nil
	}

	rows, err := s.conn.Query(`
		SELECT
			COALESCE(obj.ZNOTE, obj.ZNOTE1, obj.ZATTACHMENT),
			obj.ZTYPEUTI1,
			obj.ZALTTEXT,
			obj.ZTOKENCONTENTIDENTIFIER
		FROM `+profile.Tables.Objects+` obj
		WHERE obj.ZTYPEUTI1 IN (?, ?, ?)
			AND (obj.ZNOTE IS NOT NULL OR obj.ZNOTE1 IS NOT NULL OR obj.ZATTACHMENT IS NOT NULL)
		ORDER BY obj.Z_PK`,
		UTIHashtag, UTIMention, UTILink)
	if err != nil {
		return nil, fmt.Errorf("store: query inline objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			noteID     int64
			uti        string
			alt, token sql.NullString
		)
		if err := rows.Scan(&noteID, &uti, &alt, &token); err != nil {
			return nil, fmt.Errorf("store: scan inline object: %w", err)
		}

		obj := byNote[noteID]
		if obj == nil {
			obj = &InlineObjects{}
			byNote[noteID] = obj
		}
		switch uti {
		case UTIHashtag:
			if alt.Valid && alt.String != "" {
				obj.Hashtags = appendUnique(obj.Hashtags, alt.String)
			}
		case UTIMention:
			if alt.Valid && alt.String != "" {
				obj.Mentions = appendUnique(obj.Mentions, alt.String)
			}
		case UTILink:
			// The URL lands in either field depending on how the link was
			// created; alt text wins. Rows whose best candidate is not an
			// http(s) URL are internal tokens, not links.
			target := alt.String
			if target == "" {
				target = token.String
			}
			if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				obj.Links = appendUnique(obj.Links, target)
			}
		}
	}
	return byNote, rows.Err()
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
