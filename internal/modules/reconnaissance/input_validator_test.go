package reconnaissance

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateAddresses_DropsMalformedAndDuplicates(t *testing.T) {
	got := ValidateAddresses("192.168.1.1\nnot-an-ip\n10.0.0.5\n10.0.0.5")
	want := []string{"192.168.1.1", "10.0.0.5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestValidateAddresses_OnlyDottedQuadsNoDuplicates(t *testing.T) {
	input := strings.Join([]string{
		"  8.8.8.8  ",
		"8.8.8.8",
		"1.1.1",
		"1.1.1.1.1",
		"1234.1.1.1",
		"999.999.999.999", // shape only, no range check
		"a.b.c.d",
		"",
		"\r",
		"10.0.0.1\r",
		"::1",
		"1.2.3.4/24",
	}, "\n")

	got := ValidateAddresses(input)
	seen := map[string]bool{}
	for _, addr := range got {
		if !IsDottedQuad(addr) {
			t.Errorf("Output contains non dotted-quad entry %q", addr)
		}
		if seen[addr] {
			t.Errorf("Output contains duplicate %q", addr)
		}
		seen[addr] = true
	}
	want := []string{"8.8.8.8", "999.999.999.999", "10.0.0.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestValidateAddresses_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n", "garbage\nmore garbage"} {
		got := ValidateAddresses(in)
		if got == nil || len(got) != 0 {
			t.Errorf("Expected empty non-nil slice for %q, got %#v", in, got)
		}
	}
}

func TestParseInput_Counters(t *testing.T) {
	s := ParseInput("192.168.1.1\nnot-an-ip\n\n10.0.0.5\n10.0.0.5\n", false)
	if s.Lines != 4 {
		t.Errorf("Expected 4 non-blank lines, got %d", s.Lines)
	}
	if s.Dropped != 2 {
		t.Errorf("Expected 2 dropped lines, got %d", s.Dropped)
	}
	if len(s.Addresses) != 2 {
		t.Errorf("Expected 2 addresses, got %d", len(s.Addresses))
	}
}

func TestParseInput_ExpandCIDR(t *testing.T) {
	s := ParseInput("10.0.0.0/30\n10.0.0.1\n300.0.0.0/8", true)
	seen := map[string]bool{}
	for _, addr := range s.Addresses {
		if !IsDottedQuad(addr) {
			t.Errorf("Expanded entry %q is not a dotted quad", addr)
		}
		if seen[addr] {
			t.Errorf("Duplicate %q after expansion", addr)
		}
		seen[addr] = true
	}
	for _, want := range []string{"10.0.0.1", "10.0.0.2"} {
		if !seen[want] {
			t.Errorf("Expected %s in expanded output %v", want, s.Addresses)
		}
	}
	if s.Dropped < 2 {
		t.Errorf("Expected the repeated address and the bad CIDR to be dropped, got %d", s.Dropped)
	}

	plain := ParseInput("10.0.0.0/30", false)
	if len(plain.Addresses) != 0 {
		t.Errorf("CIDR lines must be dropped when expansion is off, got %v", plain.Addresses)
	}
}

func TestReadInput(t *testing.T) {
	text, err := ReadInput(strings.NewReader("1.1.1.1\r\n2.2.2.2"))
	if err != nil {
		t.Fatalf("ReadInput returned an error: %v", err)
	}
	got := ValidateAddresses(text)
	if !reflect.DeepEqual(got, []string{"1.1.1.1", "2.2.2.2"}) {
		t.Errorf("Unexpected addresses %v", got)
	}
}

func TestReadInput_OverlongLineIsDropped(t *testing.T) {
	input := "1.1.1.1\n" + strings.Repeat("x", 2<<20) + "\n2.2.2.2\n"
	text, err := ReadInput(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadInput returned an error: %v", err)
	}
	s := ParseInput(text, false)
	if !reflect.DeepEqual(s.Addresses, []string{"1.1.1.1", "2.2.2.2"}) {
		t.Errorf("Unexpected addresses %v", s.Addresses)
	}
	if s.Dropped != 1 {
		t.Errorf("Expected the long line to be dropped, got %d dropped", s.Dropped)
	}
}

func TestParseInput_WidePrefixNotExpanded(t *testing.T) {
	s := ParseInput("0.0.0.0/0\n10.0.0.0/8\n10.1.2.3", true)
	if !reflect.DeepEqual(s.Addresses, []string{"10.1.2.3"}) {
		t.Errorf("Wide prefixes must not be expanded, got %d addresses", len(s.Addresses))
	}
	if s.Dropped != 2 {
		t.Errorf("Expected both wide prefixes dropped, got %d", s.Dropped)
	}
}
