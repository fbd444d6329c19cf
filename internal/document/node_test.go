package document

import (
	"testing"
)

func TestEmptyRootJSON(t *testing.T) {
	root := NewRoot()
	data, err := Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"root","properties":{},"children":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestCanonicalKeyOrder(t *testing.T) {
	root := NewRoot()
	root.Properties["zeta"] = "z"
	root.Properties["alpha"] = "a"
	data, err := Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"root","properties":{"alpha":"a","zeta":"z"},"children":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestRoundTrip(t *testing.T) {
	root := NewRoot()
	root.Properties["pagebanner"] = map[string]string{"image": "Foo.jpg"}

	section := NewNode(KindSection)
	section.Properties["title"] = "Understand"
	section.Properties["level"] = 2
	root.Children = append(root.Children, section)

	text := NewNode(KindText)
	text.Properties["markdown"] = "Hello"
	section.Children = append(section.Children, text)

	data, err := Marshal(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(root, got) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	a := NewRoot()
	b := NewRoot()
	b.Properties["title"] = "different"
	if Equal(a, b) {
		t.Error("expected mismatch")
	}
}
