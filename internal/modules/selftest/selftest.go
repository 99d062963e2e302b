// Package selftest содержит диагностические команды, которыми UI
// проверяет работоспособность backend: арифметика, приостановка,
// путь ошибок, файловый ввод-вывод, разбор JSON, задержка сети, память.
package selftest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"runtime"
	"strings"
	"time"

	"deskshell/internal/core"
)

const (
	basicMessage    = "✅ Opération basique fonctionnelle"
	asyncMessage    = "✅ Opération async terminée après %s"
	deliberateError = "❌ Erreur de test volontaire"
	fileContent     = "Test de fichier"
)

// Config задает параметры диагностики. Нулевые поля заменяются значениями по умолчанию.
type Config struct {
	AsyncDelay   time.Duration
	NetworkDelay func() time.Duration
	MemoryBytes  int
	TempDir      string
}

// UniformDelay возвращает источник задержек, равномерно распределенных
// в [lo, hi] с шагом в миллисекунду.
func UniformDelay(lo, hi time.Duration) func() time.Duration {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := int((hi - lo) / time.Millisecond)
	return func() time.Duration {
		return lo + time.Duration(rand.IntN(span+1))*time.Millisecond
	}
}

// Module - набор команд test_*.
type Module struct {
	cfg Config
}

// New создает модуль диагностики.
func New(cfg Config) *Module {
	if cfg.AsyncDelay <= 0 {
		cfg.AsyncDelay = time.Second
	}
	if cfg.NetworkDelay == nil {
		cfg.NetworkDelay = UniformDelay(500*time.Millisecond, 2500*time.Millisecond)
	}
	if cfg.MemoryBytes <= 0 {
		cfg.MemoryBytes = 1 << 20
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Module{cfg: cfg}
}

func (m *Module) Name() string { return "selftest" }

func (m *Module) Init(ctx context.Context) error {
	st, err := os.Stat(m.cfg.TempDir)
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("temp dir %s is not a directory", m.cfg.TempDir)
	}
	return nil
}

func (m *Module) Commands() []core.Command {
	return []core.Command{
		{Name: "test_basic_operation", Handler: m.basic},
		{Name: "test_math_operation", Handler: m.add},
		{Name: "test_async_delay", Handler: m.asyncDelay},
		{Name: "test_error_handling", Handler: m.errorHandling},
		{Name: "test_file_operations", Handler: m.fileOperations},
		{Name: "test_json_parsing", Handler: m.jsonParsing},
		{Name: "test_network_simulation", Handler: m.networkSimulation},
		{Name: "test_memory_usage", Handler: m.memoryUsage},
	}
}

func (m *Module) basic(ctx context.Context, args core.Args) (interface{}, error) {
	return basicMessage, nil
}

// add складывает a и b. Бесконечность и NaN не представимы в JSON и отдаются как null.
func (m *Module) add(ctx context.Context, args core.Args) (interface{}, error) {
	a, err := args.Float("a")
	if err != nil {
		return nil, err
	}
	b, err := args.Float("b")
	if err != nil {
		return nil, err
	}
	sum := a + b
	if math.IsInf(sum, 0) || math.IsNaN(sum) {
		return nil, nil
	}
	return sum, nil
}

func (m *Module) asyncDelay(ctx context.Context, args core.Args) (interface{}, error) {
	if err := core.Sleep(ctx, m.cfg.AsyncDelay); err != nil {
		return nil, err
	}
	return fmt.Sprintf(asyncMessage, describeDelay(m.cfg.AsyncDelay)), nil
}

func (m *Module) errorHandling(ctx context.Context, args core.Args) (interface{}, error) {
	return nil, core.DeliberateFailure(deliberateError)
}

// fileOperations пишет и читает временный файл; файл удаляется всегда.
func (m *Module) fileOperations(ctx context.Context, args core.Args) (interface{}, error) {
	f, err := os.CreateTemp(m.cfg.TempDir, "deskshell-selftest-*.txt")
	if err != nil {
		return nil, core.IOFailure("Échec écriture", err)
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.WriteString(fileContent)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, core.IOFailure("Échec écriture", err)
	}

	content, err := os.ReadFile(path) // #nosec G304 -- путь создан CreateTemp выше.
	if err != nil {
		return nil, core.IOFailure("Échec lecture", err)
	}
	return fmt.Sprintf("✅ Fichier écrit/lu: %s", content), nil
}

func (m *Module) jsonParsing(ctx context.Context, args core.Args) (interface{}, error) {
	src, err := args.String("json_str")
	if err != nil {
		return nil, err
	}
	value, err := decodeExact(src)
	if err != nil {
		return nil, core.ParseFailure("Erreur JSON", err)
	}
	return value, nil
}

// decodeExact разбирает ровно одно JSON-значение. Числа остаются json.Number,
// чтобы целые больше 2^53 возвращались без округления.
func decodeExact(src string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
		}
		return nil, err
	}
	return value, nil
}

func (m *Module) networkSimulation(ctx context.Context, args core.Args) (interface{}, error) {
	delay := m.cfg.NetworkDelay()
	if err := core.Sleep(ctx, delay); err != nil {
		return nil, err
	}
	return fmt.Sprintf("✅ Simulation réseau: %dms", delay.Milliseconds()), nil
}

func (m *Module) memoryUsage(ctx context.Context, args core.Args) (interface{}, error) {
	buf := make([]byte, m.cfg.MemoryBytes)
	for i := 0; i < len(buf); i += 4096 {
		buf[i] = 1
	}
	runtime.KeepAlive(buf)
	return fmt.Sprintf("✅ Test mémoire: %s alloué temporairement", describeSize(m.cfg.MemoryBytes)), nil
}

func describeDelay(d time.Duration) string {
	if d == time.Second {
		return "1 seconde"
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%d secondes", d/time.Second)
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func describeSize(n int) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d octets", n)
}
