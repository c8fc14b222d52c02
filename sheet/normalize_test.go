package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shotlist/models"
)

func TestNormalizeRows(t *testing.T) {
	t.Run("Should prefer higher priority columns", func(t *testing.T) {
		rows := []Row{{
			"Name":            "Fallback Name",
			"Company":         "Acme",
			"Contract Number": "999",
			"Contract #":      "C-1",
			"URL":             "https://url.test",
			"Website Link":    "https://link.test",
		}}
		tasks := NormalizeRows(rows)
		require.Len(t, tasks, 1)
		assert.Equal(t, models.CaptureTask{
			Company:  "Acme",
			Contract: "C-1",
			URL:      "https://link.test",
		}, tasks[0])
	})

	t.Run("Should fall through empty higher priority columns", func(t *testing.T) {
		rows := []Row{{
			"Company":      "",
			"Company Name": "Beta LLC",
			"Website Link": "",
			"Onsite":       "https://onsite.test",
		}}
		tasks := NormalizeRows(rows)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Beta LLC", tasks[0].Company)
		assert.Equal(t, "https://onsite.test", tasks[0].URL)
		assert.Empty(t, tasks[0].Contract)
	})

	t.Run("Should drop rows without any url column value", func(t *testing.T) {
		rows := []Row{
			{"Company": "A", "Website": "https://a.test"},
			{"Company": "B", "Website": ""},
			{"Company": "C"},
			{"Company": "D", "Link": "https://d.test"},
		}
		tasks := NormalizeRows(rows)
		require.Len(t, tasks, 2)
		assert.Equal(t, "A", tasks[0].Company)
		assert.Equal(t, "D", tasks[1].Company)
	})

	t.Run("Should match headers case-sensitively", func(t *testing.T) {
		tasks := NormalizeRows([]Row{{"url": "https://a.test", "company": "x"}})
		assert.Empty(t, tasks)
	})
}

func TestNormalizeLines(t *testing.T) {
	tasks := NormalizeLines([]string{"https://a.test", "", "not a url"})
	assert.Equal(t, []models.CaptureTask{
		{URL: "https://a.test"},
		{URL: "not a url"},
	}, tasks)
}
