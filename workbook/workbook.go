// Package workbook extracts calculated-field definitions from Tableau
// workbook XML (.twb files). Only the metadata the compiler needs is
// pulled out; layout, styling, and worksheet structure are ignored.
package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/tablift/tablift"
)

// Field is one column of a datasource. Formula is empty for plain
// database columns and non-empty for calculated fields.
type Field struct {
	// Name is the internal column name with brackets stripped, e.g.
	// "Calculation_1234567890". Caption is the display name the user
	// sees and is usually what downstream naming should follow.
	Name     string
	Caption  string
	Formula  string
	Datatype string
	Role     string
}

// DisplayName returns the caption when present, otherwise the internal
// name.
func (f Field) DisplayName() string {
	if f.Caption != "" {
		return f.Caption
	}

	return f.Name
}

// Datasource is one data connection in the workbook.
type Datasource struct {
	Name    string
	Caption string
	Fields  []Field
}

// Workbook is the extracted field inventory of one .twb file.
type Workbook struct {
	Datasources []Datasource
}

// CalculatedFields returns every field carrying a formula, across all
// datasources, in document order.
func (w *Workbook) CalculatedFields() []Field {
	var fields []Field

	for _, ds := range w.Datasources {
		for _, f := range ds.Fields {
			if f.Formula != "" {
				fields = append(fields, f)
			}
		}
	}

	return fields
}

// Load reads and parses a workbook file.
func Load(path string) (*Workbook, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", tablift.ErrWorkbookRead, path, err)
	}

	return fromDocument(doc)
}

// Parse reads a workbook from a stream.
func Parse(r io.Reader) (*Workbook, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %w", tablift.ErrWorkbookRead, err)
	}

	return fromDocument(doc)
}

func fromDocument(doc *etree.Document) (*Workbook, error) {
	root := doc.Root()
	if root == nil || root.Tag != "workbook" {
		return nil, fmt.Errorf("%w: root element is not <workbook>", tablift.ErrWorkbookRead)
	}

	wb := &Workbook{}

	for _, dsElem := range root.FindElements("datasources/datasource") {
		ds := Datasource{
			Name:    dsElem.SelectAttrValue("name", ""),
			Caption: dsElem.SelectAttrValue("caption", ""),
		}

		// The Parameters pseudo-datasource holds workbook parameters,
		// not columns
		if ds.Name == "Parameters" {
			continue
		}

		for _, col := range dsElem.SelectElements("column") {
			field := Field{
				Name:     stripBrackets(col.SelectAttrValue("name", "")),
				Caption:  col.SelectAttrValue("caption", ""),
				Datatype: col.SelectAttrValue("datatype", ""),
				Role:     col.SelectAttrValue("role", ""),
			}

			if calc := col.SelectElement("calculation"); calc != nil {
				field.Formula = calc.SelectAttrValue("formula", "")
			}

			ds.Fields = append(ds.Fields, field)
		}

		wb.Datasources = append(wb.Datasources, ds)
	}

	if len(wb.Datasources) == 0 {
		return nil, tablift.ErrNoDatasource
	}

	return wb, nil
}

// stripBrackets removes the [ ] wrapper Tableau puts around internal
// column names.
func stripBrackets(name string) string {
	name = strings.TrimPrefix(name, "[")
	return strings.TrimSuffix(name, "]")
}
