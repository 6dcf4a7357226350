package jenkins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplateDeclaresParameters(t *testing.T) {
	xml, err := DefaultTemplate().Load()
	require.NoError(t, err)

	for _, name := range []string{ParamBuildID, ParamToken, ParamContainer, ParamAPI, ParamStore} {
		assert.Contains(t, xml, "<name>"+name+"</name>")
	}
}

func TestFileTemplateRereadsOnEveryLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte("<project>v1</project>"), 0o600))

	tmpl := NewTemplateSource(path)
	xml, err := tmpl.Load()
	require.NoError(t, err)
	assert.Equal(t, "<project>v1</project>", xml)

	require.NoError(t, os.WriteFile(path, []byte("<project>v2</project>"), 0o600))
	xml, err = tmpl.Load()
	require.NoError(t, err)
	assert.Equal(t, "<project>v2</project>", xml)

	require.NoError(t, os.Remove(path))
	_, err = tmpl.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewTemplateSourceDefaultsToBundled(t *testing.T) {
	assert.Equal(t, DefaultTemplate(), NewTemplateSource(""))
}
