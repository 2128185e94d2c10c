package reader

import (
	"errors"
	"testing"
)

func TestLexerObjects(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"3.5", "3.5"},
		{".5", "0.5"},
		{"/Type", "/Type"},
		{"/A#20B", "/A B"},
		{"(Hello)", "(Hello)"},
		{"(a (nested) b)", "(a (nested) b)"},
		{`(tab\there)`, "(tab\there)"},
		{`(\101\102)`, "(AB)"},
		{"<48656C6C6F>", "<48656c6c6f>"},
		{"<4>", "<40>"},
		{"true", "true"},
		{"false", "false"},
		{"null", "null"},
		{"[1 2 3]", "[3 items]"},
		{"<< /A 1 /B [2] >>", "<<2 keys>>"},
		{"10 0 R", "10 0 R"},
		{"% comment\n42", "42"},
	}
	for _, tt := range tests {
		obj, err := newLexer([]byte(tt.in), 0).object()
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got := obj.String(); got != tt.want {
			t.Errorf("%q: got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLexerNumbersAreNotReferences(t *testing.T) {
	l := newLexer([]byte("[1 0 0 1 RG]"), 0)
	obj, err := l.object()
	if err != nil {
		t.Fatal(err)
	}
	arr := obj.(Array)
	if _, ok := arr[0].(Integer); !ok {
		t.Fatalf("first element = %T, want Integer", arr[0])
	}
}

func TestLexerErrors(t *testing.T) {
	for _, in := range []string{
		"(unterminated",
		"<48zz>",
		"[1 2",
		"<< 1 2 >>",
		"bogus",
	} {
		_, err := newLexer([]byte(in), 100).object()
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: error %v is not a *SyntaxError", in, err)
			continue
		}
		if se.Offset < 100 {
			t.Errorf("%q: offset %d does not include base", in, se.Offset)
		}
	}
}

func TestLexerNestingLimit(t *testing.T) {
	deep := make([]byte, 0, 2*maxNesting+4)
	for i := 0; i < maxNesting+2; i++ {
		deep = append(deep, '[')
	}
	if _, err := newLexer(deep, 0).object(); err == nil {
		t.Fatal("expected nesting error")
	}
}

func TestLexerIndirectObject(t *testing.T) {
	l := newLexer([]byte("5 0 obj\n<< /Type /Page >>\nendobj"), 0)
	obj, err := l.indirect()
	if err != nil {
		t.Fatal(err)
	}
	if obj.Number != 5 || obj.Generation != 0 {
		t.Errorf("got %d %d obj, want 5 0 obj", obj.Number, obj.Generation)
	}
	if d, ok := obj.Value.(Dict); !ok || d.Name("Type") != "Page" {
		t.Errorf("value = %v", obj.Value)
	}
}

func TestLexerStreamLength(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"direct", "1 0 obj << /Length 5 >>\nstream\nhello\nendstream\nendobj"},
		{"wrong length", "1 0 obj << /Length 99 >>\nstream\nhello\nendstream\nendobj"},
		{"indirect", "1 0 obj << /Length 2 0 R >>\nstream\nhello\nendstream\nendobj"},
		{"crlf", "1 0 obj << /Length 3 >>\r\nstream\r\nhello\r\nendstream\r\nendobj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLexer([]byte(tt.in), 0)
			l.length = func(Reference) (int64, bool) { return 5, true }
			obj, err := l.indirect()
			if err != nil {
				t.Fatal(err)
			}
			s, ok := obj.Value.(Stream)
			if !ok {
				t.Fatalf("value = %T, want Stream", obj.Value)
			}
			if string(s.Data) != "hello" {
				t.Errorf("data = %q, want hello", s.Data)
			}
		})
	}
}

func TestDictHelpers(t *testing.T) {
	d := Dict{
		"Name":  Name("Test"),
		"Count": Integer(5),
		"Scale": Real(2.5),
		"Sub":   Dict{"Key": Name("Value")},
		"Items": Array{Integer(1), Integer(2)},
	}

	if d.Name("Name") != "Test" || d.Name("Missing") != "" {
		t.Errorf("Name: %q %q", d.Name("Name"), d.Name("Missing"))
	}
	if v, ok := d.Int("Count"); !ok || v != 5 {
		t.Errorf("Int: %v %v", v, ok)
	}
	if v, ok := d.Int("Scale"); !ok || v != 2 {
		t.Errorf("Int of real: %v %v", v, ok)
	}
	if sub := d.Dict("Sub"); sub.Name("Key") != "Value" {
		t.Errorf("Dict: %v", sub)
	}
	if len(d.Array("Items")) != 2 {
		t.Errorf("Array: %v", d.Array("Items"))
	}
}
