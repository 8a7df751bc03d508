package pdf

import (
	"bytes"
	"fmt"

	"github.com/bindery/foredge/internal/geom"
)

// BlankPage returns a one-page document of the given size with no
// content. Used to substitute pages whose content cannot be embedded.
func BlankPage(size geom.PageSize) []byte {
	return BlankDocument(size, 1)
}

// BlankDocument returns an n-page document of empty pages. pdfcpu has no
// primitive for creating an empty document at a given size short of its
// JSON description layer, so the handful of objects is written directly.
func BlankDocument(size geom.PageSize, n int) []byte {
	if n < 1 {
		n = 1
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, n+3)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		kids = fmt.Appendf(kids, "%d 0 R ", 3+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids, n))

	for i := 0; i < n; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << >> >>",
			size.Width, size.Height))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)

	return buf.Bytes()
}
