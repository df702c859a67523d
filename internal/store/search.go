package store

import (
	"context"
	"sort"
	"time"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/search"
	"metastore/internal/types"
)

// SearchOptions carries the temporal/version scope flags and paging of
// spec.md section 4.5's search operation. A zero-value SearchOptions means
// "latest version, latest tag, no as-of filter, no paging".
type SearchOptions struct {
	PriorVersions bool
	PriorTags     bool
	SearchAsOf    *time.Time
	Offset        int
	Limit         int // 0 means unlimited
}

type candidateRow struct {
	objectID      string
	objectVersion int32
	objectTS      time.Time
	tagVersion    int32
	tagTS         time.Time
}

// Search evaluates expr against every tenant object of objectType under
// the temporal/version scope in opts, and returns matching tags ordered by
// (tag_timestamp desc, object_timestamp desc, object_id asc), per spec.md
// section 4.5. Definition is never populated on search results.
func (s *Store) Search(ctx context.Context, tenant string, objectType model.ObjectType, expr search.Expression, opts SearchOptions) ([]model.Tag, error) {
	if err := search.Validate(expr); err != nil {
		return nil, errs.Wrap(errs.InvalidRequest, err, "invalid search expression")
	}

	candidates, err := s.candidateRows(ctx, tenant, objectType, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	universe := make(map[search.RowID]map[string]types.Value, len(candidates))
	byRow := make(map[search.RowID]candidateRow, len(candidates))
	for _, c := range candidates {
		row := rowID(c.objectID, c.objectVersion, c.tagVersion)
		attrs, err := loadAttrs(ctx, s.db, tenant, c.objectID, c.objectVersion, c.tagVersion)
		if err != nil {
			return nil, err
		}
		universe[row] = attrs
		byRow[row] = c
	}

	matched, err := search.Evaluate(expr, universe)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "evaluating search expression")
	}

	reduced := reduceMatches(matched, byRow, opts)

	sort.Slice(reduced, func(i, j int) bool {
		a, b := reduced[i], reduced[j]
		if !a.tagTS.Equal(b.tagTS) {
			return a.tagTS.After(b.tagTS)
		}
		if !a.objectTS.Equal(b.objectTS) {
			return a.objectTS.After(b.objectTS)
		}
		return a.objectID < b.objectID
	})

	reduced = paginate(reduced, opts.Offset, opts.Limit)

	out := make([]model.Tag, 0, len(reduced))
	for _, c := range reduced {
		attrs := universe[rowID(c.objectID, c.objectVersion, c.tagVersion)]
		out = append(out, model.Tag{
			Header: model.Header{
				ObjectType: objectType, ObjectID: c.objectID,
				ObjectVersion: c.objectVersion, ObjectTimestamp: c.objectTS,
				TagVersion: c.tagVersion, TagTimestamp: c.tagTS,
			},
			Attributes: attrs,
		})
	}
	return out, nil
}

// candidateRows implements steps 1-2 of the search procedure: determine
// the object-version scope, then the candidate tag row(s) per version,
// per opts.PriorVersions/PriorTags/SearchAsOf.
func (s *Store) candidateRows(ctx context.Context, tenant string, objectType model.ObjectType, opts SearchOptions) ([]candidateRow, error) {
	versionFilter := "ov.is_latest_object = 1"
	args := []interface{}{tenant, string(objectType)}
	if opts.PriorVersions {
		versionFilter = "1 = 1"
	} else if opts.SearchAsOf != nil {
		versionFilter = `ov.object_version = (SELECT MAX(ov2.object_version) FROM object_version ov2
			WHERE ov2.tenant = ov.tenant AND ov2.object_id = ov.object_id AND ov2.object_timestamp <= ?)`
		args = append(args, types.MicrosSinceEpoch(*opts.SearchAsOf))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT o.object_id, ov.object_version, ov.object_timestamp
		FROM object o JOIN object_version ov ON ov.tenant = o.tenant AND ov.object_id = o.object_id
		WHERE o.tenant = ? AND o.object_type = ? AND `+versionFilter, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading candidate versions")
	}
	defer rows.Close()

	type versionRow struct {
		objectID string
		version  int32
		ts       int64
	}
	var versions []versionRow
	for rows.Next() {
		var v versionRow
		if err := rows.Scan(&v.objectID, &v.version, &v.ts); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning candidate version")
		}
		versions = append(versions, v)
	}

	var out []candidateRow
	for _, v := range versions {
		tags, err := s.candidateTags(ctx, tenant, v.objectID, v.version, opts)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			out = append(out, candidateRow{
				objectID: v.objectID, objectVersion: v.version,
				objectTS: types.TimeMicros(v.ts).Time(),
				tagVersion: t.version, tagTS: t.ts,
			})
		}
	}
	return out, nil
}

type tagRow struct {
	version int32
	ts      time.Time
}

// candidateTags returns, for one object version, either every tag (when
// PriorTags is set) or the single "current as of SearchAsOf" tag:
// is_latest_tag when SearchAsOf is unset, else the tag with the greatest
// tag_timestamp <= SearchAsOf (possibly none).
func (s *Store) candidateTags(ctx context.Context, tenant, objectID string, objectVersion int32, opts SearchOptions) ([]tagRow, error) {
	if opts.PriorTags {
		query := `SELECT tag_version, tag_timestamp FROM tag WHERE tenant = ? AND object_id = ? AND object_version = ?`
		args := []interface{}{tenant, objectID, objectVersion}
		if opts.SearchAsOf != nil {
			query += ` AND tag_timestamp <= ?`
			args = append(args, types.MicrosSinceEpoch(*opts.SearchAsOf))
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "loading candidate tags")
		}
		defer rows.Close()

		var out []tagRow
		for rows.Next() {
			var v int32
			var ts int64
			if err := rows.Scan(&v, &ts); err != nil {
				return nil, errs.Wrap(errs.Unexpected, err, "scanning candidate tag")
			}
			out = append(out, tagRow{version: v, ts: types.TimeMicros(ts).Time()})
		}
		return out, nil
	}

	if opts.SearchAsOf == nil {
		var v int32
		var ts int64
		err := s.db.QueryRowContext(ctx, `SELECT tag_version, tag_timestamp FROM tag
			WHERE tenant = ? AND object_id = ? AND object_version = ? AND is_latest_tag = 1`,
			tenant, objectID, objectVersion).Scan(&v, &ts)
		if err != nil {
			return nil, nil
		}
		return []tagRow{{version: v, ts: types.TimeMicros(ts).Time()}}, nil
	}

	var v int32
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT tag_version, tag_timestamp FROM tag
		WHERE tenant = ? AND object_id = ? AND object_version = ? AND tag_timestamp <= ?
		ORDER BY tag_timestamp DESC LIMIT 1`,
		tenant, objectID, objectVersion, types.MicrosSinceEpoch(*opts.SearchAsOf)).Scan(&v, &ts)
	if err != nil {
		return nil, nil
	}
	return []tagRow{{version: v, ts: types.TimeMicros(ts).Time()}}, nil
}

func rowID(objectID string, objectVersion, tagVersion int32) search.RowID {
	return search.RowID(objectID + "\x00" + itoa(objectVersion) + "\x00" + itoa(tagVersion))
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// reduceMatches implements steps 4-5 of the search procedure: when
// PriorTags is set, collapse each object version's matches down to its
// single latest-matching tag; when PriorVersions is set, collapse each
// object's remaining match down to its single latest-matching version.
func reduceMatches(matched map[search.RowID]struct{}, byRow map[search.RowID]candidateRow, opts SearchOptions) []candidateRow {
	var rows []candidateRow
	for id := range matched {
		rows = append(rows, byRow[id])
	}

	if opts.PriorTags {
		best := make(map[string]candidateRow) // key: objectID|objectVersion
		for _, r := range rows {
			key := r.objectID + "\x00" + itoa(r.objectVersion)
			if cur, ok := best[key]; !ok || r.tagTS.After(cur.tagTS) {
				best[key] = r
			}
		}
		rows = rows[:0]
		for _, r := range best {
			rows = append(rows, r)
		}
	}

	if opts.PriorVersions {
		best := make(map[string]candidateRow) // key: objectID
		for _, r := range rows {
			cur, ok := best[r.objectID]
			if !ok || r.objectVersion > cur.objectVersion {
				best[r.objectID] = r
			}
		}
		rows = rows[:0]
		for _, r := range best {
			rows = append(rows, r)
		}
	}

	return rows
}

func paginate(rows []candidateRow, offset, limit int) []candidateRow {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
