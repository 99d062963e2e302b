// Package stdio обслуживает вызовы команд по каналу stdin/stdout
// родительского процесса: одна JSON-строка запроса, одна JSON-строка ответа.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"deskshell/internal/core"
)

// Request - одна строка входного потока.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response - одна строка выходного потока.
type Response struct {
	ID           string      `json:"id"`
	Status       string      `json:"status"`
	Data         interface{} `json:"data"`
	ErrorCode    string      `json:"error_code,omitempty"`
	Message      string      `json:"message,omitempty"`
	InvocationID string      `json:"invocation_id,omitempty"`
}

// Adapter читает запросы из in и пишет ответы в out.
// Запросы исполняются параллельно, запись ответов сериализована.
type Adapter struct {
	registry *core.Registry
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	maxLine  int

	writeMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewAdapter создает stdio transport. maxLine <= 0 означает 8 MiB.
func NewAdapter(registry *core.Registry, logger *slog.Logger, in io.Reader, out io.Writer, maxLine int) *Adapter {
	if maxLine <= 0 {
		maxLine = 8 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		registry: registry,
		logger:   logger.With("component", "stdio"),
		in:       in,
		out:      out,
		maxLine:  maxLine,
	}
}

func (a *Adapter) Name() string { return "stdio" }

// Start запускает цикл чтения в фоне.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return errors.New("stdio transport already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true
	go a.serve(runCtx, a.done)
	return nil
}

// Stop отменяет незавершенные вызовы. Блокирующее чтение из in
// прерывается только закрытием потока, поэтому Stop его не ждет.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.running = false
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Done закрывается, когда входной поток исчерпан и все ответы записаны.
func (a *Adapter) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *Adapter) serve(ctx context.Context, done chan struct{}) {
	defer close(done)
	var wg sync.WaitGroup
	defer wg.Wait()

	reader := bufio.NewReaderSize(a.in, min(64<<10, a.maxLine))
	for {
		line, tooLong, err := readLine(reader, a.maxLine)
		if ctx.Err() != nil {
			return
		}
		switch {
		case tooLong:
			a.logger.Warn("request line too long", "limit", a.maxLine)
			a.write(Response{
				Status:    core.StatusError,
				ErrorCode: "line_too_long",
				Message:   fmt.Sprintf("request line exceeds %d bytes", a.maxLine),
			})
		case len(bytes.TrimSpace(line)) > 0:
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.write(a.handle(ctx, line))
			}()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.logger.Error("stdin read failed", "err", err)
			}
			return
		}
	}
}

// readLine читает строку до '\n' без него. Строка длиннее limit
// дочитывается до конца и отбрасывается, tooLong = true.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		n := len(chunk)
		if err == nil {
			n--
		}
		if !tooLong {
			if len(line)+n > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk[:n]...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimSuffix(line, []byte("\r")), tooLong, err
	}
}

func (a *Adapter) handle(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Status: core.StatusError, ErrorCode: "invalid_json", Message: err.Error()}
	}
	if req.Command == "" {
		return Response{ID: req.ID, Status: core.StatusError, ErrorCode: "bad_command", Message: "command is required"}
	}
	args, err := core.ParseArgs(req.Args)
	if err != nil {
		return Response{ID: req.ID, Status: core.StatusError, ErrorCode: core.CodeInvalidArguments, Message: err.Error()}
	}
	resp, _ := a.registry.Execute(ctx, req.Command, args)
	return Response{
		ID:           req.ID,
		Status:       resp.Status,
		Data:         resp.Data,
		ErrorCode:    resp.ErrorCode,
		Message:      resp.Message,
		InvocationID: resp.InvocationID,
	}
}

func (a *Adapter) write(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		a.logger.Error("encode response", "id", resp.ID, "err", err)
		data, _ = json.Marshal(Response{ID: resp.ID, Status: core.StatusError, ErrorCode: core.CodeInternal, Message: err.Error()})
	}
	data = append(data, '\n')

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if _, err := a.out.Write(data); err != nil {
		a.logger.Error("write response", "id", resp.ID, "err", err)
	}
}
