package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"deskshell/internal/core"
)

type fakeProvider struct{}

func (p *fakeProvider) Name() string                   { return "fake" }
func (p *fakeProvider) Init(ctx context.Context) error { return nil }
func (p *fakeProvider) Commands() []core.Command {
	return []core.Command{
		{Name: "add", Handler: func(ctx context.Context, args core.Args) (interface{}, error) {
			a, err := args.Float("a")
			if err != nil {
				return nil, err
			}
			b, err := args.Float("b")
			if err != nil {
				return nil, err
			}
			return a + b, nil
		}},
		{Name: "slow", Handler: func(ctx context.Context, args core.Args) (interface{}, error) {
			if err := core.Sleep(ctx, 50*time.Millisecond); err != nil {
				return nil, err
			}
			return "slow", nil
		}},
		{Name: "fail", Handler: func(ctx context.Context, args core.Args) (interface{}, error) {
			return nil, core.DeliberateFailure("boom")
		}},
	}
}

func run(t *testing.T, input string) map[string]Response {
	t.Helper()
	defer goleak.VerifyNone(t)

	registry, err := core.NewRegistry(context.Background(), []core.CommandProvider{&fakeProvider{}})
	require.NoError(t, err)

	var out bytes.Buffer
	a := NewAdapter(registry, nil, strings.NewReader(input), &out, 0)
	require.NoError(t, a.Start(context.Background()))

	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stdio transport did not finish")
	}
	require.NoError(t, a.Stop(context.Background()))

	byID := make(map[string]Response)
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp), sc.Text())
		byID[resp.ID] = resp
	}
	return byID
}

func TestResponsesEchoIDs(t *testing.T) {
	got := run(t, strings.Join([]string{
		`{"id":"1","command":"add","args":{"a":2,"b":3}}`,
		`{"id":"2","command":"fail"}`,
		`{"id":"3","command":"missing"}`,
		`{"id":"4","command":"add","args":{"a":1}}`,
		``,
	}, "\n"))

	require.Len(t, got, 4)
	assert.Equal(t, core.StatusOK, got["1"].Status)
	assert.Equal(t, float64(5), got["1"].Data)
	assert.NotEmpty(t, got["1"].InvocationID)

	assert.Equal(t, string(core.KindDeliberate), got["2"].ErrorCode)
	assert.Equal(t, "boom", got["2"].Message)
	assert.Equal(t, core.CodeCommandNotFound, got["3"].ErrorCode)
	assert.Equal(t, core.CodeInvalidArguments, got["4"].ErrorCode)
}

func TestSlowRequestDoesNotBlockFastOne(t *testing.T) {
	var out bytes.Buffer
	registry, err := core.NewRegistry(context.Background(), []core.CommandProvider{&fakeProvider{}})
	require.NoError(t, err)
	a := NewAdapter(registry, nil, strings.NewReader(
		`{"id":"slow","command":"slow"}`+"\n"+`{"id":"fast","command":"add","args":{"a":1,"b":1}}`+"\n",
	), &out, 0)
	require.NoError(t, a.Start(context.Background()))
	<-a.Done()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var first Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "fast", first.ID)
}

func TestMalformedLine(t *testing.T) {
	got := run(t, "{not json}\n"+`{"id":"x"}`+"\n")
	require.Contains(t, got, "")
	assert.Equal(t, "invalid_json", got[""].ErrorCode)
	assert.Equal(t, "bad_command", got["x"].ErrorCode)
}

func TestStartTwice(t *testing.T) {
	registry, err := core.NewRegistry(context.Background(), nil)
	require.NoError(t, err)
	a := NewAdapter(registry, nil, strings.NewReader(""), &bytes.Buffer{}, 0)
	require.NoError(t, a.Start(context.Background()))
	require.Error(t, a.Start(context.Background()))
	<-a.Done()
	require.NoError(t, a.Stop(context.Background()))
}

func TestOversizedLineRejectedAndReadingContinues(t *testing.T) {
	defer goleak.VerifyNone(t)
	registry, err := core.NewRegistry(context.Background(), []core.CommandProvider{&fakeProvider{}})
	require.NoError(t, err)

	long := `{"id":"big","command":"add","args":{"pad":"` + strings.Repeat("x", 2000) + `"}}`
	input := long + "\n" + `{"id":"after","command":"add","args":{"a":1,"b":2}}` + "\n"
	var out bytes.Buffer
	a := NewAdapter(registry, nil, strings.NewReader(input), &out, 1024)
	require.NoError(t, a.Start(context.Background()))
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stdio transport did not finish")
	}
	require.NoError(t, a.Stop(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	byCode := make(map[string]Response)
	for _, line := range lines {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		byCode[resp.ErrorCode] = resp
	}
	assert.Equal(t, core.StatusError, byCode["line_too_long"].Status)
	assert.Equal(t, "after", byCode[""].ID)
	assert.Equal(t, 3.0, byCode[""].Data)
}

func TestReadLineLimit(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("1234567\r\n123456789\nabc"), 16)

	line, tooLong, err := readLine(r, 8)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "1234567", string(line))

	_, tooLong, err = readLine(r, 8)
	require.NoError(t, err)
	assert.True(t, tooLong)

	line, tooLong, err = readLine(r, 8)
	require.ErrorIs(t, err, io.EOF)
	assert.False(t, tooLong)
	assert.Equal(t, "abc", string(line))
}
