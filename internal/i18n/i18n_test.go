package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCatalogsComplete 中文目录覆盖所有英文消息
func TestCatalogsComplete(t *testing.T) {
	for id := range messagesEN {
		_, ok := messagesZH[id]
		assert.True(t, ok, "missing zh translation for %s", id)
	}
	assert.Len(t, messagesZH, len(messagesEN))
}

func TestTranslate(t *testing.T) {
	defer SetLanguage(LangEnglish)

	assert.Equal(t, "empty function", T("SP0104"))
	assert.Equal(t, "no.such.id", T("no.such.id"))

	require.NoError(t, SetLanguageFromString("zh-CN"))
	assert.Equal(t, "空函数", T("SP0104"))
	assert.Equal(t, "no.such.id", T("no.such.id"))

	assert.Error(t, SetLanguageFromString("klingon"))
	assert.Equal(t, "empty function", T("SP0104"))
	assert.True(t, Has("SP0300"))
	assert.False(t, Has("SP0999"))
}
