package gop

import (
	"strings"
	"testing"
)

func testTable() PhoneTable {
	return PhoneTable{1: "DH", 2: "AH", 3: "K", 4: "IY", 5: "S"}
}

func TestParsePhoneTable(t *testing.T) {
	input := "DH 1\nAH 2\n\nK 3\n"
	table, err := ParsePhoneTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePhoneTable: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("table size = %d, want 3", len(table))
	}
	if table[2] != "AH" {
		t.Errorf("table[2] = %q, want AH", table[2])
	}
}

func TestParsePhoneTable_MalformedLine(t *testing.T) {
	if _, err := ParsePhoneTable(strings.NewReader("DH 1 extra\n")); err == nil {
		t.Error("expected error for three-field line")
	}
	if _, err := ParsePhoneTable(strings.NewReader("DH one\n")); err == nil {
		t.Error("expected error for non-integer index")
	}
}

func TestPhoneTable_UnknownIndexPlaceholder(t *testing.T) {
	table := testTable()
	if got := table.Symbol(99); got != "phone-99" {
		t.Errorf("Symbol(99) = %q, want phone-99", got)
	}
}

func TestParseReport(t *testing.T) {
	report := "utt-001 [ 1 -0.1 ] [ 2 -0.25 ] [ 3 -1.5e-2 ]"
	phones, err := ParseReport(report, testTable())
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	want := []ScoredPhone{
		{Phone: "DH", Score: -0.1},
		{Phone: "AH", Score: -0.25},
		{Phone: "K", Score: -0.015},
	}
	if len(phones) != len(want) {
		t.Fatalf("phone count = %d, want %d", len(phones), len(want))
	}
	for i := range want {
		if phones[i] != want[i] {
			t.Errorf("phone %d = %+v, want %+v", i, phones[i], want[i])
		}
	}
}

func TestParseReport_UnknownIndexDegradesGracefully(t *testing.T) {
	phones, err := ParseReport("utt [ 1 -0.1 ] [ 42 -0.9 ]", testTable())
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if phones[1].Phone != "phone-42" {
		t.Errorf("unknown index symbol = %q, want phone-42", phones[1].Phone)
	}
}

func TestParseReport_NoPairs(t *testing.T) {
	// An identifier alone is a valid (empty) report.
	phones, err := ParseReport("utt-001", testTable())
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if len(phones) != 0 {
		t.Errorf("phone count = %d, want 0", len(phones))
	}
}

func TestParseReport_Empty(t *testing.T) {
	if _, err := ParseReport("   ", testTable()); err == nil {
		t.Error("expected error for empty report")
	}
}

func TestParseReport_ScientificNotation(t *testing.T) {
	phones, err := ParseReport("utt [ 4 -3.2E-1 ] [ 5 +1e0 ]", testTable())
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if phones[0].Score != -0.32 {
		t.Errorf("score = %v, want -0.32", phones[0].Score)
	}
	if phones[1].Score != 1 {
		t.Errorf("score = %v, want 1", phones[1].Score)
	}
}
