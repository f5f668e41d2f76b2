package manifest

import (
	"strings"
	"testing"
)

const sampleManifest = `# real-time speech to text models
# requires python >=3.8, <3.12
# requires cuda ~=11.8
# linux: apt-get install -y libcublas11
SpeechRecognition==3.10.0
faster-whisper~=0.10.0

PyAudio~=0.2.13  # capture backend
silero-vad
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Requirements) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(m.Requirements))
	}

	checks := []struct {
		name       string
		normalized string
		op         string
		version    string
	}{
		{"SpeechRecognition", "speechrecognition", "==", "3.10.0"},
		{"faster-whisper", "faster-whisper", "~=", "0.10.0"},
		{"PyAudio", "pyaudio", "~=", "0.2.13"},
		{"silero-vad", "silero-vad", "", ""},
	}
	for i, want := range checks {
		got := m.Requirements[i]
		if got.Name != want.name || got.Normalized != want.normalized ||
			got.Operator != want.op || got.Version != want.version {
			t.Errorf("requirement %d: got %+v, want %+v", i, got, want)
		}
	}

	// the trailing comment must not leak into RawSpec
	if m.Requirements[2].RawSpec != "PyAudio~=0.2.13" {
		t.Errorf("inline comment not stripped: %q", m.Requirements[2].RawSpec)
	}
	// the unconstrained requirement carries no constraint
	if m.Requirements[3].Constraint != nil {
		t.Error("bare requirement should have nil constraint")
	}
}

func TestParsePrerequisites(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Prerequisites) != 4 {
		t.Fatalf("expected 4 prerequisites, got %d", len(m.Prerequisites))
	}

	if m.Prerequisites[0].Kind != PrerequisiteNote {
		t.Errorf("first comment should be a note, got %s", m.Prerequisites[0].Kind)
	}

	py := m.Prerequisites[1]
	if py.Kind != PrerequisiteRuntime || py.Name != "python" || py.Spec != ">=3.8, <3.12" {
		t.Errorf("python prerequisite parsed wrong: %+v", py)
	}

	cuda := m.Prerequisites[2]
	if cuda.Kind != PrerequisiteToolkit || cuda.Name != "cuda" || cuda.Spec != "~=11.8" {
		t.Errorf("cuda prerequisite parsed wrong: %+v", cuda)
	}

	cmd := m.Prerequisites[3]
	if cmd.Kind != PrerequisiteCommand || cmd.Platform != "linux" ||
		cmd.Command != "apt-get install -y libcublas11" {
		t.Errorf("platform command parsed wrong: %+v", cmd)
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	bad := []string{
		"torch>=2.0.0",
		"faster-whisper==",
		"pyaudio~=0",
		"-leading-dash==1.0.0",
		"name with spaces==1.0.0",
		"foo==1.2.3.4.5",
	}
	for _, line := range bad {
		t.Run(line, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(line + "\n")); err == nil {
				t.Errorf("expected parse error for %q", line)
			}
		})
	}
}

func TestParseErrorCarriesLineNumber(t *testing.T) {
	input := "# header\nvalid-pkg==1.0.0\nbroken>=2\n"
	_, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error should name line 3: %v", err)
	}
}

func TestParseCRLFAndCommentOnly(t *testing.T) {
	m, err := Parse(strings.NewReader("# only guidance\r\n\r\n# nothing else\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Requirements) != 0 {
		t.Error("comment-only manifest should have no requirements")
	}
	if len(m.Prerequisites) != 2 {
		t.Errorf("expected 2 prerequisites, got %d", len(m.Prerequisites))
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"SpeechRecognition": "speechrecognition",
		"Faster_Whisper":    "faster-whisper",
		"a..b--c__d":        "a-b-c-d",
		"PyAudio":           "pyaudio",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupAndPackages(t *testing.T) {
	m, err := Parse(strings.NewReader("Faster_Whisper~=0.10.0\nfaster-whisper==0.10.1\nPyAudio~=0.2.13\n"))
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Lookup("faster-whisper"); got == nil || got.Line != 1 {
		t.Error("Lookup should return the first matching requirement")
	}
	if got := m.Packages(); len(got) != 2 {
		t.Errorf("expected 2 unique packages, got %v", got)
	}
}
