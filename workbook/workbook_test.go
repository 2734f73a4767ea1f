package workbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/tablift/tablift"
)

const sampleWorkbook = `<?xml version='1.0' encoding='utf-8' ?>
<workbook source-build='2023.1' version='18.1'>
  <datasources>
    <datasource caption='Parameters' name='Parameters'>
      <column caption='Top N' datatype='integer' name='[Parameter 1]' role='measure'/>
    </datasource>
    <datasource caption='Sample Superstore' name='federated.abc123'>
      <column caption='Sales' datatype='real' name='[Sales]' role='measure'/>
      <column caption='Profit' datatype='real' name='[Profit]' role='measure'/>
      <column caption='Profit Ratio' datatype='real' name='[Calculation_123456]' role='measure'>
        <calculation class='tableau' formula='SUM([Profit])/SUM([Sales])'/>
      </column>
      <column caption='High Value' datatype='boolean' name='[Calculation_654321]' role='dimension'>
        <calculation class='tableau' formula='[Sales] &gt; 100'/>
      </column>
    </datasource>
  </datasources>
</workbook>`

func TestParseWorkbook(t *testing.T) {
	wb, err := Parse(strings.NewReader(sampleWorkbook))
	assert.NoError(t, err)

	// The Parameters pseudo-datasource is skipped
	assert.Equal(t, 1, len(wb.Datasources))

	ds := wb.Datasources[0]
	assert.Equal(t, "federated.abc123", ds.Name)
	assert.Equal(t, "Sample Superstore", ds.Caption)
	assert.Equal(t, 4, len(ds.Fields))
}

func TestCalculatedFields(t *testing.T) {
	wb, err := Parse(strings.NewReader(sampleWorkbook))
	assert.NoError(t, err)

	calculated := wb.CalculatedFields()
	assert.Equal(t, 2, len(calculated))

	first := calculated[0]
	assert.Equal(t, "Calculation_123456", first.Name)
	assert.Equal(t, "Profit Ratio", first.Caption)
	assert.Equal(t, "SUM([Profit])/SUM([Sales])", first.Formula)
	assert.Equal(t, "real", first.Datatype)
	assert.Equal(t, "measure", first.Role)

	// XML entities in formulas are decoded
	assert.Equal(t, "[Sales] > 100", calculated[1].Formula)
}

func TestDisplayNamePrefersCaption(t *testing.T) {
	withCaption := Field{Name: "Calculation_1", Caption: "Profit Ratio"}
	assert.Equal(t, "Profit Ratio", withCaption.DisplayName())

	withoutCaption := Field{Name: "Sales"}
	assert.Equal(t, "Sales", withoutCaption.DisplayName())
}

func TestParseRejectsNonWorkbookRoot(t *testing.T) {
	_, err := Parse(strings.NewReader("<notebook></notebook>"))
	assert.IsError(t, err, tablift.ErrWorkbookRead)
}

func TestParseRejectsInvalidXML(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml at all <<<"))
	assert.IsError(t, err, tablift.ErrWorkbookRead)
}

func TestParseRequiresDatasource(t *testing.T) {
	_, err := Parse(strings.NewReader("<workbook><datasources/></workbook>"))
	assert.IsError(t, err, tablift.ErrNoDatasource)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.twb")
	assert.IsError(t, err, tablift.ErrWorkbookRead)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.twb")

	err := os.WriteFile(path, []byte(sampleWorkbook), 0o644)
	assert.NoError(t, err)

	wb, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(wb.CalculatedFields()))
}
