package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestSource(t *testing.T) *Source {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "contacts.csv", contactsCSV)
	writeFile(t, dir, "agencies.csv", "id,name,state\n10,Springfield PD,IL\n11,Shelbyville PD,IL\n")

	src := NewSource(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := src.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return src
}

func TestSource_LoadAndFind(t *testing.T) {
	src := newTestSource(t)

	if !src.Loaded() {
		t.Fatal("source should report loaded")
	}
	counts := src.Counts()
	if counts[NameContacts] != 2 || counts[NameAgencies] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}

	contact, err := src.Find(NameContacts, "3")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if contact.String("last_name") != "Turing" {
		t.Fatalf("unexpected contact %v", contact)
	}

	agency, err := src.Find(NameAgencies, contact.String("agency_id"))
	if err != nil {
		t.Fatalf("linked agency lookup failed: %v", err)
	}
	if agency.String("name") != "Springfield PD" {
		t.Fatalf("unexpected agency %v", agency)
	}
}

func TestSource_Errors(t *testing.T) {
	src := newTestSource(t)

	if _, err := src.Find(NameContacts, "999"); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := src.Table("invoices"); !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
	if _, err := src.Query("invoices", Query{}); !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestSource_MissingFileYieldsEmptyTable(t *testing.T) {
	dir := t.TempDir()
	src := NewSource(dir, slog.New(slog.NewTextHandler(io.Discard, nil)), Definition{Name: "ghost", File: "ghost-does-not-exist.csv"})
	if err := src.Load(context.Background()); err != nil {
		t.Fatalf("missing file must not fail load: %v", err)
	}
	table, err := src.Table("ghost")
	if err != nil {
		t.Fatalf("table lookup failed: %v", err)
	}
	if table.TotalRows != 0 {
		t.Fatalf("expected empty table, got %d rows", table.TotalRows)
	}
}

func TestSource_QueryContacts(t *testing.T) {
	src := newTestSource(t)

	page, err := src.Query(NameContacts, Query{Search: "alan"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if page.Matched != 1 || page.Rows[0].ID() != "3" {
		t.Fatalf("unexpected page %+v", page)
	}
}
