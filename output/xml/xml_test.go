package xml

import (
	"context"
	stdxml "encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

type document struct {
	XMLName stdxml.Name
	Records []xmlRecord `xml:"record"`
}

func newOutputElement(t *testing.T, root string) (*element.Element, *testutil.Feeder, string) {
	t.Helper()
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))

	path := filepath.Join(t.TempDir(), "out.xml")
	s := settings.New()
	s.SetString("path", path)
	if root != "" {
		s.SetString("root", root)
	}
	el, err := rt.Instantiate(TypeID, "xml", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := testutil.NewFeeder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	return el, feeder, path
}

func readDocument(t *testing.T, path string) document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, stdxml.Unmarshal(data, &doc))
	return doc
}

func TestXMLOutput_WritesDocument(t *testing.T) {
	el, feeder, path := newOutputElement(t, "")
	require.NoError(t, el.Start(context.Background()))

	buf := pad.NewBuffer([]byte("disk <full> & more"))
	buf.Offset = 3
	buf.Metadata().SetString("remote_addr", "10.0.0.1:514")
	buf.Metadata().SetString("host", "db1")
	require.Equal(t, pad.FlowOK, feeder.Pad().Push(buf))
	buf.Release()
	require.Equal(t, pad.FlowOK, feeder.PushString(`{"level":"warn"}`))

	el.Stop()
	assert.EqualValues(t, 2, el.Instance().(*Output).Records())

	doc := readDocument(t, path)
	assert.Equal(t, "records", doc.XMLName.Local)
	require.Len(t, doc.Records, 2)

	first := doc.Records[0]
	assert.Equal(t, "xml", first.Source)
	assert.Equal(t, uint64(3), first.Offset)
	assert.Equal(t, "disk <full> & more", first.Data)
	require.Len(t, first.Meta, 2)
	assert.Equal(t, "host", first.Meta[0].Key)
	assert.Equal(t, "db1", first.Meta[0].Value)
	assert.Equal(t, `{"level":"warn"}`, doc.Records[1].Data)
}

func TestXMLOutput_CustomRoot(t *testing.T) {
	el, feeder, path := newOutputElement(t, "log")
	require.NoError(t, el.Start(context.Background()))
	for _, line := range testutil.SampleLogLines {
		require.Equal(t, pad.FlowOK, feeder.PushString(line))
	}
	el.Stop()

	doc := readDocument(t, path)
	assert.Equal(t, "log", doc.XMLName.Local)
	assert.Len(t, doc.Records, len(testutil.SampleLogLines))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), stdxml.Header))
}

func TestXMLOutput_NotStarted(t *testing.T) {
	el, feeder, _ := newOutputElement(t, "")
	require.NoError(t, el.Start(context.Background()))
	el.Stop()
	assert.Equal(t, pad.FlowFlushing, feeder.PushString("late"))
}

func TestXMLOutput_MissingPath(t *testing.T) {
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))
	el, err := rt.Instantiate(TypeID, "", nil)
	require.NoError(t, err)
	defer el.Release()

	err = el.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}
