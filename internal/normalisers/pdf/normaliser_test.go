package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// buildPDF writes a minimal uncompressed PDF with one text line per page.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	write := func(obj string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, len(pages)))
	write("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		write(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>\nendobj\n", 4+2*i, 5+2*i))
		write(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", 5+2*i, len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.Equal(t, "pdf", normaliser.Name())
	assert.Equal(t, []string{".pdf"}, normaliser.Extensions())
}

func TestParse_InvalidInput(t *testing.T) {
	normaliser := New()

	_, err := normaliser.Parse(context.Background(), nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_NotAPDF(t *testing.T) {
	normaliser := New()
	data := bytes.Repeat([]byte("this is not a pdf file at all\n"), 10)

	sections, err := normaliser.Parse(context.Background(), bytes.NewReader(data), int64(len(data)))

	assert.ErrorIs(t, err, domain.ErrParseFailed)
	assert.Nil(t, sections)
}

func TestParse_PerPageSections(t *testing.T) {
	normaliser := New()
	data := buildPDF("Annual leave is twenty days", "Sick leave is ten days")

	sections, err := normaliser.Parse(context.Background(), bytes.NewReader(data), int64(len(data)))

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, 1, sections[0].Page)
	assert.Contains(t, sections[0].Text, "Annual leave is twenty days")
	assert.Equal(t, 2, sections[1].Page)
	assert.Contains(t, sections[1].Text, "Sick leave is ten days")
}

func TestParse_CancelledContext(t *testing.T) {
	normaliser := New()
	data := buildPDF("page one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := normaliser.Parse(ctx, bytes.NewReader(data), int64(len(data)))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
