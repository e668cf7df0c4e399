package cmdline

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	clio "github.com/dzonerzy/go-cmdline/io"
)

var (
	intType         = reflect.TypeFor[int]()
	stringSliceType = reflect.TypeFor[[]string]()
)

func mustParse(t *testing.T, spec *CommandSpec, args ...string) *ParseResult {
	t.Helper()
	cl, err := NewCommandLine(spec)
	if err != nil {
		t.Fatalf("NewCommandLine failed: %v", err)
	}
	result, err := cl.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", args, err)
	}
	return result
}

func parseError(t *testing.T, spec *CommandSpec, args ...string) error {
	t.Helper()
	cl, err := NewCommandLine(spec)
	if err != nil {
		t.Fatalf("NewCommandLine failed: %v", err)
	}
	_, err = cl.Parse(args)
	if err == nil {
		t.Fatalf("Parse(%q) succeeded, want error", args)
	}
	return err
}

// compactCommand mirrors a typical "-rv -o file inputs..." tool.
func compactCommand() *CommandSpec {
	c := NewCommand("compact")
	c.Option("-v", "--verbose").Type(boolType)
	c.Option("-r", "--recursive").Type(boolType)
	c.Option("-o", "--output").Label("<outputFile>")
	c.Positional("<inputFiles>").Type(stringSliceType)
	return c
}

func TestShortOptionClustering(t *testing.T) {
	inputs := [][]string{
		{"-rvoout"},
		{"-vroout"},
		{"-rvo", "out"},
		{"-vro=out"},
		{"-rvo=out"},
		{"-rv", "-o", "out"},
		{"-rv", "-oout"},
		{"-rv", "-o=out"},
		{"-r", "-v", "-oout"},
		{"-r", "-v", "-o", "out"},
		{"-vr", "--output", "out"},
	}

	for _, in := range inputs {
		t.Run(strings.Join(in, " "), func(t *testing.T) {
			args := append(append([]string(nil), in...), "p1", "p2")
			leaf := mustParse(t, compactCommand(), args...).Leaf()

			if v, _ := leaf.GetBool("verbose"); !v {
				t.Error("verbose not set")
			}
			if r, _ := leaf.GetBool("-r"); !r {
				t.Error("recursive not set")
			}
			if out := leaf.MustGetString("output", ""); out != "out" {
				t.Errorf("output = %q, want out", out)
			}
			files, _ := leaf.GetStringSlice("inputFiles")
			if diff := cmp.Diff([]string{"p1", "p2"}, files); diff != "" {
				t.Errorf("inputFiles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClusterWithUnknownCharacter(t *testing.T) {
	err := parseError(t, compactCommand(), "-vp1")

	var uerr *UnmatchedArgumentError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %T %v, want *UnmatchedArgumentError", err, err)
	}
	if err.Error() != "Unknown option: -p1" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestClusterUnknownCharacterAllowed(t *testing.T) {
	spec := compactCommand().AllowUnmatched(true)
	leaf := mustParse(t, spec, "-vp1", "--bogus", "in").Leaf()
	if diff := cmp.Diff([]string{"-p1", "--bogus"}, leaf.Unmatched()); diff != "" {
		t.Errorf("unmatched mismatch (-want +got):\n%s", diff)
	}
	if !leaf.MustGetBool("verbose", false) {
		t.Error("verbose not set before the unknown character")
	}
}

func TestUnknownOptionSuggestions(t *testing.T) {
	err := parseError(t, compactCommand(), "--verbos")
	var uerr *UnmatchedArgumentError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v", err)
	}
	if err.Error() != "Unknown option: --verbos" {
		t.Errorf("message = %q", err.Error())
	}
	if len(uerr.Suggestions) == 0 || uerr.Suggestions[0] != "--verbose" {
		t.Errorf("suggestions = %v", uerr.Suggestions)
	}
}

func TestAbbreviatedOptions(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("abbrev").AbbreviateOptions(true)
		c.Option("--verbose").Type(boolType)
		c.Option("--version-file")
		c.Option("--output-dir")
		return c
	}

	leaf := mustParse(t, build(), "--verb", "--out=/tmp", "--version-f", "v.txt").Leaf()
	if !leaf.MustGetBool("verbose", false) {
		t.Error("--verb did not select --verbose")
	}
	if got := leaf.MustGetString("output-dir", ""); got != "/tmp" {
		t.Errorf("output-dir = %q", got)
	}
	if got := leaf.MustGetString("version-file", ""); got != "v.txt" {
		t.Errorf("version-file = %q", got)
	}

	err := parseError(t, build(), "--ver")
	want := "'--ver' is not unique: it matches '--verbose', '--version-file'"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
	if KindOf(err) != ErrorTypeUnmatchedArgument {
		t.Errorf("KindOf = %q", KindOf(err))
	}
}

func TestAbbreviationDisabledByDefault(t *testing.T) {
	c := NewCommand("plain")
	c.Option("--verbose").Type(boolType)
	if err := parseError(t, c, "--verb"); err.Error() != "Unknown option: --verb" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNegatableOption(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("neg")
		c.Option("--color").Type(boolType).Negatable().Default("true")
		c.Option("--no-backup").Type(boolType).Negatable()
		return c
	}

	tests := []struct {
		args   []string
		color  bool
		backup bool
	}{
		{nil, true, false},
		{[]string{"--no-color"}, false, false},
		{[]string{"--color"}, true, false},
		{[]string{"--no-color=false"}, true, false},
		{[]string{"--backup"}, true, true},
		{[]string{"--no-backup"}, true, true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			leaf := mustParse(t, build(), tt.args...).Leaf()
			if got := leaf.MustGetBool("color", false); got != tt.color {
				t.Errorf("color = %v, want %v", got, tt.color)
			}
			if got := leaf.MustGetBool("no-backup", false); got != tt.backup {
				t.Errorf("no-backup = %v, want %v", got, tt.backup)
			}
		})
	}
}

func TestNegatedFormComplementsDefault(t *testing.T) {
	tests := []struct {
		name string
		def  string
		args []string
		want bool
	}{
		{"no default, negated", "", []string{"--no-fast"}, true},
		{"false default, negated", "false", []string{"--no-fast"}, true},
		{"true default, negated", "true", []string{"--no-fast"}, false},
		{"true default, declared", "true", []string{"--fast"}, true},
		{"no default, declared", "", []string{"--fast"}, true},
		{"explicit value inverted", "", []string{"--no-fast=true"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommand("neg")
			b := c.Option("--fast").Type(boolType).Negatable()
			if tt.def != "" {
				b.Default(tt.def)
			}
			leaf := mustParse(t, c, tt.args...).Leaf()
			if got := leaf.MustGetBool("fast", !tt.want); got != tt.want {
				t.Errorf("fast = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNegatableRequiresBoolean(t *testing.T) {
	c := NewCommand("bad")
	c.Option("--name").Negatable()
	_, err := NewCommandLine(c)
	var ierr *InitializationError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want *InitializationError", err)
	}
}

func TestEndOfOptions(t *testing.T) {
	leaf := mustParse(t, compactCommand(), "-v", "--", "-r", "--output", "--").Leaf()
	if leaf.MustGetBool("recursive", false) {
		t.Error("-r after -- was matched as an option")
	}
	files, _ := leaf.GetStringSlice("inputFiles")
	if diff := cmp.Diff([]string{"-r", "--output", "--"}, files); diff != "" {
		t.Errorf("inputFiles mismatch (-want +got):\n%s", diff)
	}
}

func TestNegativeNumbers(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("calc")
		c.Option("-n").Type(intType)
		c.Option("-1", "--one").Type(boolType)
		c.Positional("<values>").Type(reflect.TypeFor[[]float64]())
		return c
	}

	leaf := mustParse(t, build(), "-n", "-5", "-3", "2.5", "-1", "-0.5").Leaf()
	if n, _ := leaf.GetInt("n"); n != -5 {
		t.Errorf("n = %d, want -5", n)
	}
	if !leaf.MustGetBool("one", false) {
		t.Error("-1 names an option and should match it")
	}
	values, _ := Get[[]float64](leaf, "values")
	if diff := cmp.Diff([]float64{-3, 2.5, -0.5}, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionArity(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("arity")
		c.Option("-v").Type(boolType)
		c.Option("-f", "--files").Type(stringSliceType)
		c.Option("-p", "--pair").Type(stringSliceType).Arity("2")
		c.Option("-o", "--opt").Type(stringSliceType).Arity("0..2")
		c.Positional("<rest>").Type(stringSliceType)
		return c
	}

	t.Run("unbounded stops at options", func(t *testing.T) {
		leaf := mustParse(t, build(), "-f", "a", "b", "-v", "c").Leaf()
		files, _ := leaf.GetStringSlice("files")
		rest, _ := leaf.GetStringSlice("rest")
		if diff := cmp.Diff([]string{"a", "b"}, files); diff != "" {
			t.Errorf("files mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"c"}, rest); diff != "" {
			t.Errorf("rest mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("repeated occurrences accumulate", func(t *testing.T) {
		leaf := mustParse(t, build(), "-f", "a", "--files=b", "-f", "c").Leaf()
		files, _ := leaf.GetStringSlice("files")
		if diff := cmp.Diff([]string{"a", "b", "c"}, files); diff != "" {
			t.Errorf("files mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"a", "b", "c"}, leaf.RawValues("files")); diff != "" {
			t.Errorf("raw mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fixed arity takes option-like values", func(t *testing.T) {
		leaf := mustParse(t, build(), "-p", "x", "-weird", "tail").Leaf()
		pair, _ := leaf.GetStringSlice("pair")
		if diff := cmp.Diff([]string{"x", "-weird"}, pair); diff != "" {
			t.Errorf("pair mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fixed arity stops at a known option", func(t *testing.T) {
		err := parseError(t, build(), "-p", "x", "-v")
		want := "option '--pair' (<pair>) requires at least 2 values, but only 1 were specified: [x]"
		if err.Error() != want {
			t.Errorf("message = %q, want %q", err.Error(), want)
		}
		if KindOf(err) != ErrorTypeMissingParameter {
			t.Errorf("KindOf = %q", KindOf(err))
		}
	})

	t.Run("missing value", func(t *testing.T) {
		err := parseError(t, build(), "-f")
		if err.Error() != "Missing required parameter for option '--files' (<files>)" {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("unknown dash tokens are absorbed", func(t *testing.T) {
		leaf := mustParse(t, build(), "--files", "a", "-zzz", "--nope").Leaf()
		files, _ := leaf.GetStringSlice("files")
		if diff := cmp.Diff([]string{"a", "-zzz", "--nope"}, files); diff != "" {
			t.Errorf("files mismatch (-want +got):\n%s", diff)
		}

		leaf = mustParse(t, build(), "-o", "a", "-zzz", "b").Leaf()
		opt, _ := leaf.GetStringSlice("opt")
		rest, _ := leaf.GetStringSlice("rest")
		if diff := cmp.Diff([]string{"a", "-zzz"}, opt); diff != "" {
			t.Errorf("opt mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"b"}, rest); diff != "" {
			t.Errorf("rest mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("optional values", func(t *testing.T) {
		leaf := mustParse(t, build(), "-o", "-v", "x").Leaf()
		if !leaf.HasMatched("opt") {
			t.Error("-o without values not marked matched")
		}
		opt, _ := leaf.GetStringSlice("opt")
		if len(opt) != 0 {
			t.Errorf("opt = %v, want empty", opt)
		}

		leaf = mustParse(t, build(), "-o", "a", "b", "c").Leaf()
		opt, _ = leaf.GetStringSlice("opt")
		rest, _ := leaf.GetStringSlice("rest")
		if diff := cmp.Diff([]string{"a", "b"}, opt); diff != "" {
			t.Errorf("opt mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"c"}, rest); diff != "" {
			t.Errorf("rest mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestBooleanOptionalValue(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("bools")
		c.Option("--debug").Type(boolType).Arity("0..1")
		c.Positional("<args>").Type(stringSliceType)
		return c
	}

	leaf := mustParse(t, build(), "--debug", "false", "x").Leaf()
	if leaf.MustGetBool("debug", true) {
		t.Error("--debug false left the flag set")
	}

	leaf = mustParse(t, build(), "--debug", "x").Leaf()
	if !leaf.MustGetBool("debug", false) {
		t.Error("--debug without a literal did not set the flag")
	}
	args, _ := leaf.GetStringSlice("args")
	if diff := cmp.Diff([]string{"x"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagGivenParameter(t *testing.T) {
	c := NewCommand("flags")
	c.Option("-f", "--force").Arity("0")
	err := parseError(t, c, "--force=yes")
	want := "option '--force' (<force>) should be specified without 'yes' parameter"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestMapOptions(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("maps")
		c.Option("-D").Type(reflect.TypeFor[map[string]int]()).Split(",")
		return c
	}

	leaf := mustParse(t, build(), "-D", "a=1,b=2", "-Dc=3").Leaf()
	got, _ := Get[map[string]int](leaf, "D")
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2, "c": 3}, got); diff != "" {
		t.Errorf("map mismatch (-want +got):\n%s", diff)
	}
	if f := leaf.Format("D"); f != "a=1,b=2,c=3" {
		t.Errorf("Format = %q", f)
	}

	err := parseError(t, build(), "-D", "novalue")
	want := "Value for option '-D' (<D>) should be in KEY=VALUE format but was novalue"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	err = parseError(t, build(), "-D", "a=x")
	if KindOf(err) != ErrorTypeTypeConversion {
		t.Errorf("KindOf = %q for %v", KindOf(err), err)
	}
}

func TestSplitValues(t *testing.T) {
	c := NewCommand("split")
	c.Option("-x").Type(reflect.TypeFor[[]int]()).Split(",")
	leaf := mustParse(t, c, "-x", "1,2,3", "-x", "4").Leaf()
	got, _ := leaf.GetIntSlice("x")
	if diff := cmp.Diff([]int{1, 2, 3, 4}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1,2,3", "4"}, leaf.RawValues("x")); diff != "" {
		t.Errorf("raw mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredOption(t *testing.T) {
	c := NewCommand("req")
	c.Option("-n", "--name").Required()
	c.Option("-q").Type(boolType).Required()

	err := parseError(t, c, "-q")
	if err.Error() != "Missing required option '--name=<name>'" {
		t.Errorf("message = %q", err.Error())
	}
	var merr *MissingParameterError
	if !errors.As(err, &merr) || merr.Arg.LongestName() != "--name" {
		t.Errorf("err = %#v", err)
	}
}

func TestTypeConversionError(t *testing.T) {
	c := NewCommand("conv")
	c.Option("-n", "--count").Type(intType)
	err := parseError(t, c, "--count", "abc")

	var cerr *TypeConversionError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *TypeConversionError", err)
	}
	if err.Error() != "Invalid value for option '--count' (<count>): 'abc' is not an int" {
		t.Errorf("message = %q", err.Error())
	}
	if cerr.Value != "abc" || cerr.Type != intType {
		t.Errorf("TypeConversionError = %+v", cerr)
	}
}

func TestPositionalIndexes(t *testing.T) {
	build := func() *CommandSpec {
		c := NewCommand("cp")
		c.Positional("<source>").Index("0")
		c.Positional("<extra>").Index("1..2").Type(stringSliceType)
		c.Positional("<target>").Index("3")
		return c
	}

	leaf := mustParse(t, build(), "a", "b", "c", "d").Leaf()
	if got := leaf.MustGetString("source", ""); got != "a" {
		t.Errorf("source = %q", got)
	}
	extra, _ := leaf.GetStringSlice("extra")
	if diff := cmp.Diff([]string{"b", "c"}, extra); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
	if got := leaf.MustGetString("target", ""); got != "d" {
		t.Errorf("target = %q", got)
	}

	err := parseError(t, build(), "a", "b", "c", "d", "e")
	if err.Error() != "Unmatched argument: e" {
		t.Errorf("message = %q", err.Error())
	}

	err = parseError(t, build())
	if err.Error() != "Missing required parameter: <source>" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSharedPositionalSlot(t *testing.T) {
	c := NewCommand("shared")
	c.Positional("<first>").Index("0..1")
	c.Positional("<second>").Index("0..1")

	leaf := mustParse(t, c, "x", "y").Leaf()
	if got := leaf.MustGetString("first", ""); got != "x" {
		t.Errorf("first = %q", got)
	}
	if got := leaf.MustGetString("second", ""); got != "y" {
		t.Errorf("second = %q", got)
	}
}

func TestPositionalArity(t *testing.T) {
	c := NewCommand("pairs")
	c.Positional("<pair>").Type(stringSliceType).Arity("2").Index("0..1")
	c.Positional("<last>").Index("2").Optional()

	leaf := mustParse(t, c, "a", "b", "c").Leaf()
	pair, _ := leaf.GetStringSlice("pair")
	if diff := cmp.Diff([]string{"a", "b"}, pair); diff != "" {
		t.Errorf("pair mismatch (-want +got):\n%s", diff)
	}
	if got := leaf.MustGetString("last", ""); got != "c" {
		t.Errorf("last = %q", got)
	}
}

func TestVariablePositionalArity(t *testing.T) {
	tests := []struct {
		name  string
		arity string
		args  []string
		files []string
		tail  []string
	}{
		{"unbounded takes all", "1..*", []string{"a", "b", "c"}, []string{"a", "b", "c"}, nil},
		{"bounded stops at max", "1..2", []string{"a", "b", "c"}, []string{"a", "b"}, []string{"c"}},
		{"stops at a known option", "1..*", []string{"a", "b", "-v", "c"}, []string{"a", "b"}, []string{"c"}},
		{"absorbs unknown dash tokens", "1..*", []string{"a", "-zzz"}, []string{"a", "-zzz"}, nil},
		{"optional tail", "0..*", []string{"a"}, []string{"a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommand("files")
			c.Option("-v").Type(boolType)
			c.Positional("<files>").Type(stringSliceType).Index("0").Arity(tt.arity)
			c.Positional("<tail>").Type(stringSliceType).Index("1..*")

			leaf := mustParse(t, c, tt.args...).Leaf()
			files, _ := leaf.GetStringSlice("files")
			if diff := cmp.Diff(tt.files, files); diff != "" {
				t.Errorf("files mismatch (-want +got):\n%s", diff)
			}
			tail, _ := leaf.GetStringSlice("tail")
			if diff := cmp.Diff(tt.tail, tail, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("tail mismatch (-want +got):\n%s", diff)
			}
		})
	}

	c := NewCommand("files")
	c.Positional("<files>").Type(stringSliceType).Index("0").Arity("2..*")
	err := parseError(t, c, "a")
	if KindOf(err) != ErrorTypeMissingParameter {
		t.Errorf("KindOf = %q for %v", KindOf(err), err)
	}
}

func TestDuplicateOptionName(t *testing.T) {
	c := NewCommand("dup")
	c.Option("-v", "--verbose").Type(boolType)
	c.Option("--version", "-v").Type(boolType)
	_, err := NewCommandLine(c)
	if err == nil || KindOf(err) != ErrorTypeInitialization {
		t.Fatalf("err = %v, want initialization error", err)
	}
	if !strings.Contains(err.Error(), "'-v'") {
		t.Errorf("message = %q", err.Error())
	}
}

type shadowedConfig struct {
	Common
	Local string `option:"--config"`
}

func TestInheritedDuplicateOptionName(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*CommandLine, error)
	}{
		{"Inherit", func() (*CommandLine, error) {
			base := NewCommand("base")
			base.Option("-c", "--config")
			c := NewCommand("child")
			c.Option("--config")
			return NewCommandLine(c.Inherit(base))
		}},
		{"struct embedding", func() (*CommandLine, error) {
			return New(&shadowedConfig{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			var ierr *InitializationError
			if !errors.As(err, &ierr) {
				t.Fatalf("err = %v, want *InitializationError", err)
			}
			if !strings.Contains(err.Error(), "'--config'") {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestInvalidOptionName(t *testing.T) {
	c := NewCommand("names")
	c.Option("verbose")
	if _, err := NewCommandLine(c); KindOf(err) != ErrorTypeInitialization {
		t.Fatalf("err = %v, want initialization error", err)
	}
}

func TestMalformedArityIsReported(t *testing.T) {
	c := NewCommand("bad")
	c.Option("-x").Arity("2..1")
	_, err := NewCommandLine(c)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}

func TestParseIsRepeatable(t *testing.T) {
	cl, err := NewCommandLine(compactCommand())
	if err != nil {
		t.Fatal(err)
	}
	first, err := cl.Parse([]string{"-v", "a"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := cl.Parse([]string{"-r", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Leaf().MustGetBool("recursive", false) || second.Leaf().MustGetBool("verbose", false) {
		t.Error("state leaked between parses")
	}
	if files, _ := first.Leaf().GetStringSlice("inputFiles"); len(files) != 1 || files[0] != "a" {
		t.Errorf("first parse changed: %v", files)
	}
}

func TestTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := clio.NewLogger(clio.New().WithOut(&buf).NoColor()).
		WithFormat(clio.LogFormatPlain).
		WithLevel(clio.LevelDebug)

	cl, err := NewCommandLine(compactCommand(), WithTracer(tracer))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cl.Parse([]string{"-v", "in"}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"[SCANNING] Parsing 2 token(s) for command 'compact'",
		"Found option '-v'",
		"Assigning [in] to <inputFiles> at index 0",
		"[DONE] Finished command 'compact'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
}

func TestParseStateString(t *testing.T) {
	if StateOptionArityPending.String() != "OPTION_ARITY_PENDING" || ParseState(99).String() != "UNKNOWN" {
		t.Error("unexpected ParseState names")
	}
}
