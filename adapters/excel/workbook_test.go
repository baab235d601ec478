package excel

import (
	"path/filepath"
	"testing"

	"statadvisor/domain/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, ref, &rows[i]))
	}
}

func TestReadCatalogWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTests))
	writeRows(t, f, SheetTests, [][]interface{}{
		{"Name", "Category", "Assumptions", "Min", "Optimal", "Base_Power"},
		{"student_t_test", "parametric", "normality, homogeneity; independence", 20, "30.0", 0.8},
		{},
		{"mann_whitney_u", "nonparametric", "independence", 10, 20, 0.7},
	})
	writeRows(t, f, SheetImpact, [][]interface{}{
		{"assumption", "severe", "moderate", "robust"},
		{"normality", "student_t_test", "", "mann_whitney_u"},
		{"independence", "all"},
	})
	writeRows(t, f, SheetRemedies, [][]interface{}{
		{"assumption", "remedy"},
		{"normality", "Apply a log transform"},
		{"normality", "Use a rank-based test"},
		{"", "orphan remedy"},
	})
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cat, err := ReadCatalogWorkbook(path)
	require.NoError(t, err)

	require.Len(t, cat.Tests, 2)
	student := cat.Tests[0]
	assert.Equal(t, "student_t_test", student.Name)
	assert.Equal(t, catalog.CategoryParametric, student.Category)
	assert.Equal(t, []string{"normality", "homogeneity", "independence"}, student.Assumptions)
	assert.Equal(t, catalog.SampleSizeRequirement{Min: 20, Optimal: 30}, student.SampleSize)
	assert.InDelta(t, 0.8, student.BasePower, 1e-9)

	assert.True(t, cat.Impact["normality"].IsSevere("student_t_test"))
	assert.Equal(t, []string{"mann_whitney_u"}, cat.Impact["normality"].Robust)
	assert.True(t, cat.Impact["independence"].IsSevere("anything"))

	assert.Equal(t, []string{"Apply a log transform", "Use a rank-based test"}, cat.Remedies["normality"])
	assert.Len(t, cat.Remedies, 1)
}

func TestReadCatalogWorkbook_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadCatalogWorkbook(filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)

	noName := filepath.Join(dir, "noname.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTests))
	writeRows(t, f, SheetTests, [][]interface{}{{"category"}, {"parametric"}})
	require.NoError(t, f.SaveAs(noName))
	require.NoError(t, f.Close())

	_, err = ReadCatalogWorkbook(noName)
	assert.ErrorContains(t, err, "no name column")

	badNumber := filepath.Join(dir, "badnumber.xlsx")
	f = excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTests))
	writeRows(t, f, SheetTests, [][]interface{}{{"name", "min"}, {"t", "twenty"}})
	require.NoError(t, f.SaveAs(badNumber))
	require.NoError(t, f.Close())

	_, err = ReadCatalogWorkbook(badNumber)
	assert.ErrorContains(t, err, "row 2")
}

func TestWriteCatalogWorkbook_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	original := &catalog.Catalog{
		Tests: []catalog.TestDefinition{
			{Name: "welch_t_test", Category: catalog.CategoryParametric, Description: "Unequal variances",
				Assumptions: []string{"normality", "independence"},
				SampleSize:  catalog.SampleSizeRequirement{Min: 20, Optimal: 30}, BasePower: 0.78},
		},
		Impact: catalog.ImpactTable{
			"normality":    {Moderate: []string{"welch_t_test"}},
			"independence": {Severe: []string{catalog.AllTests}},
		},
		Remedies: map[string][]string{"normality": {"Transform the outcome"}},
	}

	require.NoError(t, WriteCatalogWorkbook(original, path))

	cat, err := ReadCatalogWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, original.Tests, cat.Tests)
	assert.Equal(t, []string{"welch_t_test"}, cat.Impact["normality"].Moderate)
	assert.Equal(t, []string{catalog.AllTests}, cat.Impact["independence"].Severe)
	assert.Equal(t, original.Remedies, cat.Remedies)
}

func TestWorkbook_ParametersRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.xlsx")
	lo, hi := 0.001, 0.2
	original := &catalog.Catalog{
		Tests: []catalog.TestDefinition{{
			Name: "student_t_test", Category: catalog.CategoryParametric,
			Assumptions: []string{"normality"},
			SampleSize:  catalog.SampleSizeRequirement{Min: 20, Optimal: 30}, BasePower: 0.8,
			Parameters: []catalog.Parameter{
				{Name: "alpha", Type: catalog.ParamNumber, Default: 0.05, Min: &lo, Max: &hi},
				{Name: "alternative", Type: catalog.ParamSelect, Default: "two-sided", Options: []string{"two-sided", "less", "greater"}},
				{Name: "iterations", Type: catalog.ParamInteger, Default: 1000},
				{Name: "exact", Type: catalog.ParamBoolean, Default: true},
			},
		}},
		Impact: catalog.ImpactTable{},
	}

	require.NoError(t, WriteCatalogWorkbook(original, path))
	cat, err := ReadCatalogWorkbook(path)
	require.NoError(t, err)

	require.Len(t, cat.Tests, 1)
	assert.Equal(t, original.Tests[0].Parameters, cat.Tests[0].Parameters)
}

func TestReadCatalogWorkbook_ParameterRowsForUnknownTests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orphans.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTests))
	writeRows(t, f, SheetTests, [][]interface{}{{"name", "base_power"}, {"sign_test", 0.6}})
	writeRows(t, f, SheetParameters, [][]interface{}{
		{"test", "name", "type", "default"},
		{"sign_test", "alpha", "number", "0.1"},
		{"ghost_test", "alpha", "number", "0.1"},
		{"sign_test", "alternative", "select", "sideways"},
	})
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cat, err := ReadCatalogWorkbook(path)
	require.NoError(t, err)
	require.Len(t, cat.Tests, 1)
	params := cat.Tests[0].Parameters
	require.Len(t, params, 2)
	assert.Equal(t, 0.1, params[0].Default)
	assert.Nil(t, params[1].Options)
	assert.Equal(t, "sideways", params[1].Default)
}
