package database

import (
	"reflect"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm/logger"
)

func TestStringArrayScan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  StringArray
	}{
		{"nil", nil, nil},
		{"json bytes", []byte(`["nhl","playoffs"]`), StringArray{"nhl", "playoffs"}},
		{"json string", `["a"]`, StringArray{"a"}},
		{"postgres array", `{nhl,"game 7"}`, StringArray{"nhl", "game 7"}},
		{"postgres empty", `{}`, StringArray{}},
		{"single value", "rivalry", StringArray{"rivalry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringArray
			if err := got.Scan(tt.value); err != nil {
				t.Fatalf("Scan() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scan() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestStringArrayScanUnsupported(t *testing.T) {
	var a StringArray
	if err := a.Scan(42); err == nil {
		t.Fatal("expected error for int value")
	}
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"a", "b"}.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v != `["a","b"]` {
		t.Errorf("Value() = %v", v)
	}

	v, err = StringArray(nil).Value()
	if err != nil || v != nil {
		t.Errorf("nil Value() = (%v, %v)", v, err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"error":  logger.Error,
		"info":   logger.Info,
		"warn":   logger.Warn,
		"":       logger.Warn,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(&Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := New(&Config{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for sqlite without a file path")
	}
}

func TestPostgresDSN(t *testing.T) {
	d, err := dialector(&Config{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "commentary", SSLMode: "disable"})
	if err != nil {
		t.Fatal(err)
	}
	pg, ok := d.(*postgres.Dialector)
	if !ok {
		t.Fatalf("dialector = %T", d)
	}
	for _, part := range []string{"host=db", "port=5432", "dbname=commentary", "sslmode=disable", "TimeZone=UTC"} {
		if !strings.Contains(pg.Config.DSN, part) {
			t.Errorf("dsn %q missing %q", pg.Config.DSN, part)
		}
	}
}

func TestStringArrayNormalize(t *testing.T) {
	got := StringArray{" Playoffs", "nhl", "", "NHL", "game 7 "}.Normalize()
	want := StringArray{"game 7", "nhl", "playoffs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %#v, want %#v", got, want)
	}
	if StringArray(nil).Normalize() != nil {
		t.Error("nil array should stay nil")
	}
}

func TestStringArrayEscapedLiteral(t *testing.T) {
	var got StringArray
	if err := got.Scan(`{"a,b","say \"hi\""}`); err != nil {
		t.Fatal(err)
	}
	want := StringArray{"a,b", `say "hi"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %#v, want %#v", got, want)
	}
}
