package repository

import (
	"errors"
	"testing"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

type fakeRows struct {
	data   [][]interface{}
	idx    int
	err    error
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.data) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...interface{}) error {
	row := f.data[f.idx-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *time.Time:
			*p = row[i].(time.Time)
		case *pgvector.Vector:
			*p = row[i].(pgvector.Vector)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func (f *fakeRows) Err() error { return f.err }
func (f *fakeRows) Close()     { f.closed = true }

func TestScanMessages_PreservesOrder(t *testing.T) {
	now := time.Now().UTC()
	rows := &fakeRows{data: [][]interface{}{
		{"m1", "c1", "user", "is a pick a turnover?", now},
		{"m2", "c1", "assistant", "No.", now.Add(time.Second)},
	}}

	msgs, err := scanMessages(rows)
	if err != nil {
		t.Fatalf("scan messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestScanMessages_EmptyIsNotNil(t *testing.T) {
	msgs, err := scanMessages(&fakeRows{})
	if err != nil {
		t.Fatalf("scan messages: %v", err)
	}
	if msgs == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestScanMessages_PropagatesRowsError(t *testing.T) {
	if _, err := scanMessages(&fakeRows{err: errors.New("boom")}); err == nil {
		t.Fatalf("expected rows error")
	}
}

func TestScanRuleSections(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"r1", "15.A", "rules", "A pick occurs when ...", pgvector.NewVector([]float32{0.1, 0.2}), time.Now().UTC()},
	}}
	sections, err := scanRuleSections(rows)
	if err != nil {
		t.Fatalf("scan sections: %v", err)
	}
	if len(sections) != 1 || sections[0].RuleNumber != "15.A" {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	if got := sections[0].Embedding.Slice(); len(got) != 2 {
		t.Fatalf("unexpected embedding: %v", got)
	}
}
