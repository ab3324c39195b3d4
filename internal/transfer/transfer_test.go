package transfer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"csv": FormatCSV, "XLSX": FormatXLSX, "leads.csv": FormatCSV, "/tmp/Leads.XLSX": FormatXLSX,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("leads.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadCSVHeaderAliases(t *testing.T) {
	in := "\ufeffid,Full Name,E-mail,Company,Lead Source,Amount,ZIP,Stage,Mystery\n" +
		"7,Ada Lovelace,ada@x.io,Engines Ltd,website,\"$1,200.50\",SW1,won,??\n" +
		",,,,,,,,\n" +
		"8,Grace,,Navy,Billboard,lots,,,\n"

	rows, err := Read(strings.NewReader(in), FormatCSV, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ada := rows[0]
	assert.Equal(t, 2, ada.Line)
	assert.Equal(t, int64(0), ada.Lead.ID)
	assert.Equal(t, "Ada Lovelace", ada.Lead.Name)
	assert.Equal(t, "ada@x.io", ada.Lead.Email)
	assert.Equal(t, "Engines Ltd", ada.Lead.Place)
	assert.Equal(t, domain.LeadSource("website"), ada.Lead.Source)
	assert.Equal(t, domain.LeadStatus("won"), ada.Lead.Status)
	assert.Equal(t, 1200.5, ada.Lead.Value)
	assert.Equal(t, "SW1", ada.Lead.PostalCode)

	assert.Equal(t, 4, rows[1].Line, "blank row keeps line numbering")
	assert.Equal(t, 0.0, rows[1].Lead.Value)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("email,phone\na@b.c,1\n"), FormatCSV, ReadOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(strings.NewReader(""), FormatCSV, ReadOptions{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Read(strings.NewReader("name\na\nb\nc\n"), FormatCSV, ReadOptions{MaxRows: 2})
	assert.ErrorIs(t, err, ErrTooManyRows)

	_, err = Read(strings.NewReader("name\n"), Format("pdf"), ReadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read(strings.NewReader("name\n"), FormatCSV, ReadOptions{Encoding: "utf-16"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)

	_, err = Read(strings.NewReader("not a zip archive"), FormatXLSX, ReadOptions{})
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestReadLatin1(t *testing.T) {
	in := []byte("name,city\nJos\xe9,M\xfcnchen\n")
	rows, err := Read(bytes.NewReader(in), FormatCSV, ReadOptions{Encoding: "latin1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "José", rows[0].Lead.Name)
	assert.Equal(t, "München", rows[0].Lead.City)
}

func sampleLeads() []domain.Lead {
	at := time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC)
	return []domain.Lead{
		{
			ID: 1, RefNumber: "REF-0A1B2C3D", Name: "Ada", Email: "ada@x.io", Place: "Engines, Ltd",
			Source: domain.SourceReferral, Owner: "sam", Status: domain.StatusWon, Value: 1200.5,
			Tags: "vip,math", Notes: "line one\nline two", PreferredDate: "2026-04-01", PreferredTime: "10:00",
			Address:     domain.Address{Street: "1 St", City: "London", Country: "UK"},
			FullAddress: "1 St, London, UK", CreatedAt: at, UpdatedAt: at.Add(time.Hour),
		},
		{ID: 2, RefNumber: "REF-FFFFFFFF", Name: "Grace", Status: domain.StatusNew, CreatedAt: at, UpdatedAt: at},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleLeads()))

	first, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, "id,ref_number,name,email,phone,place,source,owner,status,value,tags,notes,"+
		"preferred_date,preferred_time,street_address,city,state,postal_code,country,full_address,"+
		"created_at,updated_at", first)

	rows, err := Read(&buf, FormatCSV, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for i, want := range sampleLeads() {
		want.ID = 0
		assert.Equal(t, want, rows[i].Lead)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleLeads()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, sheetName, f.GetSheetName(0))
	styleID, err := f.GetCellStyle(sheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	f.Close()

	rows, err := Read(bytes.NewReader(buf.Bytes()), FormatXLSX, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	got := rows[0].Lead
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 1200.5, got.Value)
	assert.Equal(t, "line one\nline two", got.Notes)
	assert.Equal(t, sampleLeads()[0].CreatedAt, got.CreatedAt)
}
