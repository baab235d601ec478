package excel

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"statadvisor/domain/catalog"

	"github.com/xuri/excelize/v2"
)

// Sheet names of a catalog workbook
const (
	SheetTests      = "tests"
	SheetImpact     = "impact"
	SheetRemedies   = "remedies"
	SheetParameters = "parameters"
)

var (
	testColumns      = []string{"name", "category", "description", "assumptions", "min", "optimal", "base_power"}
	impactColumns    = []string{"assumption", "severe", "moderate", "robust"}
	remedyColumns    = []string{"assumption", "remedy"}
	parameterColumns = []string{"test", "name", "type", "default", "min", "max", "options"}
	listSeparators   = func(r rune) bool { return r == ',' || r == ';' }
)

// ReadCatalogWorkbook reads a catalog from a workbook with tests, impact,
// remedies and parameters sheets. Only the tests sheet is required. Columns are matched by
// header name, case-insensitively.
func ReadCatalogWorkbook(path string) (*catalog.Catalog, error) {
	startTime := time.Now()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("workbook not found: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetTests)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", SheetTests, err)
	}

	cat := &catalog.Catalog{Impact: catalog.ImpactTable{}, Remedies: map[string][]string{}}
	cat.Tests, err = parseTests(rows)
	if err != nil {
		return nil, err
	}

	if hasSheet(f, SheetImpact) {
		rows, err := f.GetRows(SheetImpact)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", SheetImpact, err)
		}
		parseImpact(rows, cat.Impact)
	}

	if hasSheet(f, SheetRemedies) {
		rows, err := f.GetRows(SheetRemedies)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", SheetRemedies, err)
		}
		parseRemedies(rows, cat.Remedies)
	}

	if hasSheet(f, SheetParameters) {
		rows, err := f.GetRows(SheetParameters)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", SheetParameters, err)
		}
		if err := parseParameters(rows, cat.Tests); err != nil {
			return nil, err
		}
	}

	log.Printf("[CatalogWorkbook] Read %d tests, %d impact rows from %s in %.2fms",
		len(cat.Tests), len(cat.Impact), path, float64(time.Since(startTime).Nanoseconds())/1e6)
	return cat, nil
}

func parseTests(rows [][]string) ([]catalog.TestDefinition, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", SheetTests)
	}
	idx := headerIndex(rows[0])
	if _, ok := idx["name"]; !ok {
		return nil, fmt.Errorf("%s sheet has no name column", SheetTests)
	}

	var tests []catalog.TestDefinition
	for rowNum, row := range rows[1:] {
		name := cell(row, idx, "name")
		if name == "" && isBlank(row) {
			continue
		}
		def := catalog.TestDefinition{
			Name:        name,
			Category:    catalog.Category(cell(row, idx, "category")),
			Description: cell(row, idx, "description"),
			Assumptions: splitList(cell(row, idx, "assumptions")),
		}
		var err error
		if def.SampleSize.Min, err = intCell(row, idx, "min"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetTests, rowNum+2, err)
		}
		if def.SampleSize.Optimal, err = intCell(row, idx, "optimal"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetTests, rowNum+2, err)
		}
		if def.BasePower, err = floatCell(row, idx, "base_power"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetTests, rowNum+2, err)
		}
		tests = append(tests, def)
	}
	return tests, nil
}

func parseImpact(rows [][]string, table catalog.ImpactTable) {
	if len(rows) == 0 {
		return
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		key := cell(row, idx, "assumption")
		if key == "" {
			continue
		}
		impact := table[key]
		impact.Severe = append(impact.Severe, splitList(cell(row, idx, "severe"))...)
		impact.Moderate = append(impact.Moderate, splitList(cell(row, idx, "moderate"))...)
		impact.Robust = append(impact.Robust, splitList(cell(row, idx, "robust"))...)
		table[key] = impact
	}
}

func parseRemedies(rows [][]string, remedies map[string][]string) {
	if len(rows) == 0 {
		return
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		key := cell(row, idx, "assumption")
		remedy := cell(row, idx, "remedy")
		if key == "" || remedy == "" {
			continue
		}
		remedies[key] = append(remedies[key], remedy)
	}
}

// parseParameters attaches parameter rows to the tests they name. Rows for
// tests missing from the tests sheet are skipped.
func parseParameters(rows [][]string, tests []catalog.TestDefinition) error {
	if len(rows) == 0 {
		return nil
	}
	byName := make(map[string]int, len(tests))
	for i, def := range tests {
		byName[def.Name] = i
	}

	idx := headerIndex(rows[0])
	for rowNum, row := range rows[1:] {
		test, name := cell(row, idx, "test"), cell(row, idx, "name")
		if test == "" || name == "" {
			continue
		}
		i, ok := byName[test]
		if !ok {
			log.Printf("[CatalogWorkbook] %s row %d: unknown test %q, skipping", SheetParameters, rowNum+2, test)
			continue
		}

		typ := catalog.ParameterType(strings.ToLower(cell(row, idx, "type")))
		param := catalog.Parameter{
			Name:    name,
			Type:    typ,
			Default: parseDefault(typ, cell(row, idx, "default")),
		}
		if options := splitList(cell(row, idx, "options")); len(options) > 0 {
			param.Options = options
		}
		var err error
		if param.Min, err = optionalFloatCell(row, idx, "min"); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetParameters, rowNum+2, err)
		}
		if param.Max, err = optionalFloatCell(row, idx, "max"); err != nil {
			return fmt.Errorf("%s row %d: %w", SheetParameters, rowNum+2, err)
		}
		tests[i].Parameters = append(tests[i].Parameters, param)
	}
	return nil
}

// parseDefault converts a default cell to the parameter's value type. Values
// that do not parse stay strings so catalog validation can report them.
func parseDefault(typ catalog.ParameterType, v string) interface{} {
	if v == "" {
		return nil
	}
	switch typ {
	case catalog.ParamInteger:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	case catalog.ParamNumber:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case catalog.ParamBoolean:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return v
}

// WriteCatalogWorkbook writes a catalog in the layout ReadCatalogWorkbook expects
func WriteCatalogWorkbook(cat *catalog.Catalog, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTests); err != nil {
		return fmt.Errorf("failed to name %s sheet: %w", SheetTests, err)
	}
	testRows := [][]interface{}{}
	for _, def := range cat.Tests {
		testRows = append(testRows, []interface{}{
			def.Name, string(def.Category), def.Description, strings.Join(def.Assumptions, ", "),
			def.SampleSize.Min, def.SampleSize.Optimal, def.BasePower,
		})
	}
	if err := writeSheet(f, SheetTests, testColumns, testRows); err != nil {
		return err
	}

	impactRows := [][]interface{}{}
	for _, key := range sortedKeys(cat.Impact) {
		impact := cat.Impact[key]
		impactRows = append(impactRows, []interface{}{
			key, strings.Join(impact.Severe, ", "), strings.Join(impact.Moderate, ", "), strings.Join(impact.Robust, ", "),
		})
	}
	if err := writeSheet(f, SheetImpact, impactColumns, impactRows); err != nil {
		return err
	}

	remedyRows := [][]interface{}{}
	for _, key := range sortedKeys(cat.Remedies) {
		for _, remedy := range cat.Remedies[key] {
			remedyRows = append(remedyRows, []interface{}{key, remedy})
		}
	}
	if err := writeSheet(f, SheetRemedies, remedyColumns, remedyRows); err != nil {
		return err
	}

	paramRows := [][]interface{}{}
	for _, def := range cat.Tests {
		for _, p := range def.Parameters {
			paramRows = append(paramRows, []interface{}{
				def.Name, p.Name, string(p.Type), optionalCell(p.Default), floatPtrCell(p.Min), floatPtrCell(p.Max),
				strings.Join(p.Options, ", "),
			})
		}
	}
	if err := writeSheet(f, SheetParameters, parameterColumns, paramRows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", sheet, err)
		}
	}
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func optionalCell(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func floatPtrCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func hasSheet(f *excelize.File, name string) bool {
	for _, sheet := range f.GetSheetList() {
		if sheet == name {
			return true
		}
	}
	return false
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, column string) string {
	i, ok := idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intCell(row []string, idx map[string]int, column string) (int, error) {
	v := cell(row, idx, column)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// spreadsheets often store whole numbers as 30.0
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("column %s: %q is not an integer", column, v)
		}
		return int(f), nil
	}
	return n, nil
}

func floatCell(row []string, idx map[string]int, column string) (float64, error) {
	v := cell(row, idx, column)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", column, v)
	}
	return f, nil
}

func optionalFloatCell(row []string, idx map[string]int, column string) (*float64, error) {
	if cell(row, idx, column) == "" {
		return nil, nil
	}
	f, err := floatCell(row, idx, column)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func splitList(v string) []string {
	fields := strings.FieldsFunc(v, listSeparators)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
