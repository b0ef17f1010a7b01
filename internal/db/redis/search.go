package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docsearch/internal/db"
)

const scoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Cosine distances are converted to similarities clamped to [0, 1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	field := q.VectorField
	if field == "" {
		field = "vector"
	}

	filterStr := buildTagFilter(q.Tags)
	if filterStr == "" {
		filterStr = "*"
	} else {
		filterStr = "(" + filterStr + ")"
	}
	queryStr := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", filterStr, q.K, field, scoreField)

	args := []string{q.IndexName, queryStr}
	args = appendReturn(args, q.ReturnFields, scoreField)
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if d, err := strconv.ParseFloat(e.Fields[scoreField], 64); err == nil {
			e.Score = min(1, max(0, 1.0-d))
		}
		delete(e.Fields, scoreField)
	}
	return res, nil
}

// SearchInfix runs an OR-combined contains query over TEXT fields.
func (s *Store) SearchInfix(ctx context.Context, q *db.InfixQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Fields) == 0 && len(q.TagFields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if len(q.Terms) == 0 {
		return &db.SearchResult{}, nil
	}

	query := buildInfixQuery(q.Tags, q.TagFields, q.Fields, q.Terms)
	if query == "" {
		return &db.SearchResult{}, nil
	}
	args := []string{q.IndexName, query}
	args = appendReturn(args, q.ReturnFields)
	args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseResult(raw)
}

func appendReturn(args, fields []string, extra ...string) []string {
	if len(fields) == 0 {
		return args
	}
	all := append(append([]string{}, fields...), extra...)
	args = append(args, "RETURN", strconv.Itoa(len(all)))
	return append(args, all...)
}

// --- Result parsing ---

// parseResult reads the RESP2 reply [total, key1, fields1, key2, fields2, ...].
func parseResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildTagFilter renders exact TAG matches in key order, AND-combined.
func buildTagFilter(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", k, tagEscaper.Replace(tags[k])))
	}
	return strings.Join(parts, " ")
}

// minInfixLen is the shortest piece RediSearch accepts in a *piece* query.
const minInfixLen = 2

// buildInfixQuery renders
// "@tag:{v} (@name:{w'*t1*'} | @f1|f2:(*t1*) | @name:{w'*a.b*'} | @f1|f2:(*a* *b*))".
// It returns "" when no term yields a clause.
func buildInfixQuery(tags map[string]string, tagFields, fields, terms []string) string {
	alts := make([]string, 0, len(terms)*(len(tagFields)+1))
	for _, t := range terms {
		for _, f := range tagFields {
			alts = append(alts, fmt.Sprintf("@%s:{w'*%s*'}", f, wildcardEscaper.Replace(t)))
		}
		if len(fields) == 0 {
			continue
		}
		pieces := tokenPieces(t)
		if len(pieces) == 0 {
			continue
		}
		infix := make([]string, 0, len(pieces))
		for _, p := range pieces {
			infix = append(infix, "*"+escapeQuery(p)+"*")
		}
		alts = append(alts, fmt.Sprintf("@%s:(%s)", strings.Join(fields, "|"), strings.Join(infix, " ")))
	}
	if len(alts) == 0 {
		return ""
	}
	text := "(" + strings.Join(alts, " | ") + ")"
	if f := buildTagFilter(tags); f != "" {
		return f + " " + text
	}
	return text
}

// tokenPieces splits a term at every rune that is not a letter or digit,
// which covers the tokenizer's separators. Pieces too short for an infix
// query are dropped.
func tokenPieces(term string) []string {
	parts := strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) >= minInfixLen {
			out = append(out, p)
		}
	}
	return out
}

// Inside w'...' only the quote and the escape need escaping; a literal * or ?
// widens the match, which the caller's substring check narrows again.
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`.`, `\.`,
	`,`, `\,`,
	`:`, `\:`,
	`/`, `\/`,
	`#`, `\#`,
	`&`, `\&`,
	`?`, `\?`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
