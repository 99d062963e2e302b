package core

import (
	"errors"
	"testing"
)

func TestParseArgsEmptyBody(t *testing.T) {
	for _, body := range []string{"", "  ", "null"} {
		args, err := ParseArgs([]byte(body))
		if err != nil {
			t.Fatalf("parse %q: %v", body, err)
		}
		if len(args) != 0 {
			t.Fatalf("expected empty args for %q", body)
		}
	}
}

func TestParseArgsRejectsNonObject(t *testing.T) {
	_, err := ParseArgs([]byte(`[1,2]`))
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestArgsCamelCaseAlias(t *testing.T) {
	args, err := ParseArgs([]byte(`{"jsonStr":"{}"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := args.String("json_str")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s != "{}" {
		t.Fatalf("unexpected value %q", s)
	}
}

func TestArgsWrongType(t *testing.T) {
	args, _ := ParseArgs([]byte(`{"a":"x"}`))
	if _, err := args.Float("a"); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestArgsDecodeOptional(t *testing.T) {
	args, _ := ParseArgs([]byte(`{"db":null}`))
	var db string
	ok, err := args.DecodeOptional("db", &db)
	if err != nil || ok {
		t.Fatalf("null must be treated as absent: ok=%v err=%v", ok, err)
	}
}

func TestArgsFromPairs(t *testing.T) {
	args, err := ArgsFromPairs([]string{"a=1.5", "b=2", "name=Ada", "empty="})
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	a, err := args.Float("a")
	if err != nil || a != 1.5 {
		t.Fatalf("a = %v (%v)", a, err)
	}
	name, err := args.String("name")
	if err != nil || name != "Ada" {
		t.Fatalf("name = %q (%v)", name, err)
	}
	empty, err := args.String("empty")
	if err != nil || empty != "" {
		t.Fatalf("empty = %q (%v)", empty, err)
	}
	if _, err := ArgsFromPairs([]string{"novalue"}); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestArgsFromPairsJSONLookingStrings(t *testing.T) {
	args, err := ArgsFromPairs([]string{`json_str={"a":1}`, "name=123", "flag=true"})
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	src, err := args.String("json_str")
	if err != nil || src != `{"a":1}` {
		t.Fatalf("json_str = %q (%v)", src, err)
	}
	name, err := args.String("name")
	if err != nil || name != "123" {
		t.Fatalf("name = %q (%v)", name, err)
	}
	flag, err := args.String("flag")
	if err != nil || flag != "true" {
		t.Fatalf("flag = %q (%v)", flag, err)
	}
	if n, err := args.Float("name"); err != nil || n != 123 {
		t.Fatalf("numeric pair must still decode as number: %v (%v)", n, err)
	}
}

func TestArgsStringRejectsNull(t *testing.T) {
	args, _ := ParseArgs([]byte(`{"name":null}`))
	if _, err := args.String("name"); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}
