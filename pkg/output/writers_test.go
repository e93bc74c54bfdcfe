package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Get-Meraki-Devices/pkg/meraki"
	"Get-Meraki-Devices/pkg/records"
)

func branchDevice() records.Record {
	return records.Normalize(meraki.Record{"serial": "ABC123", "networkId": "N2", "model": "MX68"}, "Branch")
}

func TestWriteCSV_DeviceRow(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []records.Record{branchDevice()}, DeviceProjection, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "site,name,serial,mac,lanIp,model,firmware,notes\nBranch,,ABC123,,,MX68,,\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteCSV_ClientHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, ClientProjection, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "site,mac,description,ip,recentDeviceName,switchport,status,manufacturer,id,notes,usage\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestRows_Fallback(t *testing.T) {
	fallback := map[string]string{"site": "Branch", "notes": "from fallback", "mac": "ff:ff"}

	tests := []struct {
		name string
		rec  records.Record
		want []string
	}{
		{
			name: "absent site filled, present fields kept",
			rec:  records.Record{Fields: meraki.Record{"mac": "aa:bb", "notes": nil}},
			want: []string{"Branch", "aa:bb", "from fallback"},
		},
		{
			name: "resolved sentinel is not replaced",
			rec:  records.Normalize(meraki.Record{"mac": "aa:bb"}, ""),
			want: []string{"ID not Found", "aa:bb", ""},
		},
		{
			name: "override is not replaced",
			rec:  records.Normalize(meraki.Record{"site": "Lab"}, "HQ"),
			want: []string{"Lab", "", ""},
		},
	}

	p := Projection{"site", "mac", "notes"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Rows([]records.Record{tt.rec}, p, fallback)
			if len(rows) != 1 {
				t.Fatalf("Rows() returned %d rows", len(rows))
			}
			if strings.Join(rows[0], "|") != strings.Join(tt.want, "|") {
				t.Errorf("Rows() = %q, want %q", rows[0], tt.want)
			}
		})
	}
}

func TestRows_MissingFieldsAndValues(t *testing.T) {
	rec := records.Normalize(meraki.Record{
		"mac":   "aa:bb",
		"usage": map[string]any{"sent": json.Number("12"), "recv": json.Number("34")},
		"ip":    nil,
	}, "HQ")

	rows := Rows([]records.Record{rec}, ClientProjection, nil)
	want := []string{"HQ", "aa:bb", "", "", "", "", "", "", "", "", `{"recv":34,"sent":12}`}
	if strings.Join(rows[0], "|") != strings.Join(want, "|") {
		t.Errorf("Rows() = %q, want %q", rows[0], want)
	}
}

func TestPersistCSV_RoundTrip(t *testing.T) {
	rec := records.Normalize(meraki.Record{
		"name":     `Core, "main"`,
		"serial":   "Q2XX-1234-ABCD",
		"mac":      "e0:55:3d:00:00:01",
		"lanIp":    "10.0.0.1",
		"model":    "MS250-48",
		"firmware": "switch-16-7",
		"notes":    "line one\nline two",
	}, "HQ")

	path := filepath.Join(t.TempDir(), "devices.csv")
	if err := PersistCSV(path, []records.Record{rec}, DeviceProjection, nil); err != nil {
		t.Fatalf("PersistCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("re-reading CSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("CSV has %d rows, want 2", len(got))
	}
	for i, key := range DeviceProjection {
		if got[0][i] != key {
			t.Errorf("header[%d] = %q, want %q", i, got[0][i], key)
		}
		v, _ := rec.Value(key)
		if got[1][i] != v {
			t.Errorf("%s = %q, want %q", key, got[1][i], v)
		}
	}
}

func TestPersistCSV_EmptyPath(t *testing.T) {
	if err := PersistCSV("", []records.Record{branchDevice()}, DeviceProjection, nil); err != nil {
		t.Errorf("PersistCSV(\"\") error = %v", err)
	}
}

func TestPersistCSV_Unwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.csv")
	err := PersistCSV(path, []records.Record{branchDevice()}, DeviceProjection, nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("PersistCSV() error = %v, want os.ErrNotExist", err)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, []records.Record{branchDevice()}, DeviceProjection, nil)

	out := buf.String()
	for _, want := range []string{"site", "firmware", "Branch", "ABC123", "MX68"} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteTable() missing %q in\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, l := range lines[1:] {
		if len([]rune(l)) != len([]rune(lines[0])) {
			t.Errorf("table lines are not aligned:\n%s", out)
			break
		}
	}
}

func TestWriteTable_Fallback(t *testing.T) {
	var buf bytes.Buffer
	rec := records.Record{Fields: meraki.Record{"mac": "aa:bb"}}
	WriteTable(&buf, []records.Record{rec}, ClientProjection, map[string]string{"site": "Branch"})
	if !strings.Contains(buf.String(), "Branch") {
		t.Errorf("WriteTable() did not apply fallback site:\n%s", buf.String())
	}
}

func TestWriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, nil, DeviceProjection, nil)
	if strings.TrimSpace(buf.String()) != "No results" {
		t.Errorf("WriteTable(nil) = %q", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	rec := records.Normalize(meraki.Record{
		"serial": "S1",
		"lat":    json.Number("37.4180951010362"),
		"tags":   []any{"core"},
		"notes":  nil,
	}, "HQ")

	var buf bytes.Buffer
	if err := WriteYAML(&buf, []records.Record{rec}); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}

	want := "- site: HQ\n  lat: 37.4180951010362\n  notes: null\n  serial: S1\n  tags:\n    - core\n"
	if buf.String() != want {
		t.Errorf("WriteYAML() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPersistYAML_EmptyPath(t *testing.T) {
	if err := PersistYAML("", nil); err != nil {
		t.Errorf("PersistYAML(\"\") error = %v", err)
	}
}
