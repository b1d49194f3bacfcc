package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentXMLText(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Company</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Role</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Acme</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Engineer</w:t></w:r></w:p><w:p><w:r><w:t>Lead</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>After table</w:t></w:r></w:p>
  </w:body>
</w:document>`

	got, err := documentXMLText(strings.NewReader(xml))

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills:\tGo\nAfter table\nCompany Role \nAcme Engineer\nLead \n", got)
}

func TestDocumentXMLText_Malformed(t *testing.T) {
	_, err := documentXMLText(strings.NewReader("<w:document><w:body>"))
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	in := "Jane   Doe ★ jane@example.com\n\n+1 (555) 010-0000 • C++ / C# • 35% • $10,000"

	got := Preprocess(in)

	assert.Equal(t, "Jane Doe jane@example.com +1 (555) 010-0000 C++ / C# 35% $10,000", got)
}

func TestPreprocess_KeepsCJK(t *testing.T) {
	assert.Equal(t, "张三 软件工程师", Preprocess("张三　　软件工程师"))
}
