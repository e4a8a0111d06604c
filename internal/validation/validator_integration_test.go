package validation

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/headless-cms-admin/internal/models"
)

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

func loadBundle(t *testing.T) models.ExportBundle {
	t.Helper()
	raw, err := os.ReadFile(testdataPath(t, "blog_bundle.json"))
	if err != nil {
		t.Fatal(err)
	}
	var bundle models.ExportBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		t.Fatalf("Failed to decode bundle: %v", err)
	}
	return bundle
}

func bundleLookup(bundle models.ExportBundle) ComponentLookup {
	byID := make(map[string]models.Component, len(bundle.Components))
	for _, c := range bundle.Components {
		byID[c.ID] = c
	}
	return func(id string) (models.Component, bool) {
		c, ok := byID[id]
		return c, ok
	}
}

func TestBundleSchema_RealData(t *testing.T) {
	bundle := loadBundle(t)
	validator := NewValidator()
	lookup := bundleLookup(bundle)

	for _, ct := range bundle.ContentTypes {
		if err := ValidateAPIID(ct.APIID); err != nil {
			t.Errorf("Content type %s: %v", ct.Name, err)
		}
		for i, field := range ct.Fields {
			siblings := append(append([]models.FieldDefinition{}, ct.Fields[:i]...), ct.Fields[i+1:]...)
			fc := FieldContext{OwnerID: ct.ID, Siblings: siblings, Components: lookup}
			if err := validator.ValidateFieldDefinition(fc, field); err != nil {
				t.Errorf("Content type %s field %s: %v", ct.Name, field.Name, err)
			}
		}
	}

	for _, comp := range bundle.Components {
		for i, field := range comp.Fields {
			siblings := append(append([]models.FieldDefinition{}, comp.Fields[:i]...), comp.Fields[i+1:]...)
			fc := FieldContext{OwnerID: comp.ID, Siblings: siblings, Components: lookup}
			if err := validator.ValidateFieldDefinition(fc, field); err != nil {
				t.Errorf("Component %s field %s: %v", comp.Name, field.Name, err)
			}
		}
	}
}

func TestBundleEntries_RealData(t *testing.T) {
	bundle := loadBundle(t)
	validator := NewValidator()
	lookup := bundleLookup(bundle)

	types := make(map[string]models.ContentType)
	for _, ct := range bundle.ContentTypes {
		types[ct.ID] = ct
	}

	for _, entry := range bundle.Entries {
		ct, ok := types[entry.ContentTypeID]
		if !ok {
			t.Errorf("Entry %s references unknown content type %s", entry.ID, entry.ContentTypeID)
			continue
		}
		if err := validator.ValidateEntryData(entry.Data, ct.Fields, lookup); err != nil {
			t.Errorf("Entry %s: %v", entry.ID, err)
		}
	}

	t.Logf("Validated %d entries from bundle", len(bundle.Entries))
}

func TestNDJSONEntries_RealData(t *testing.T) {
	bundle := loadBundle(t)
	validator := NewValidator()
	lookup := bundleLookup(bundle)
	fields := bundle.ContentTypes[0].Fields

	file, err := os.Open(testdataPath(t, "articles.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	failures := make(map[int]error)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			failures[lineNum] = err
			continue
		}
		if err := validator.ValidateEntryData(rec.Data, fields, lookup); err != nil {
			failures[lineNum] = err
		}
	}

	// line 3 has no title, line 4 rates 9 out of 5, line 5 is not JSON.
	// line 8 only has a bad status, which data validation does not see.
	if !errors.Is(failures[3], models.ErrRequiredField) {
		t.Errorf("Line 3: expected required field error, got %v", failures[3])
	}
	if !errors.Is(failures[4], models.ErrOutOfRange) {
		t.Errorf("Line 4: expected out of range error, got %v", failures[4])
	}
	if failures[5] == nil {
		t.Error("Line 5: expected a decode error")
	}
	if len(failures) != 3 {
		t.Errorf("Expected 3 failing lines, got %d: %v", len(failures), failures)
	}
}
