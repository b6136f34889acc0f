package reconnaissance

import "testing"

func TestFacetURL(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/path/x": "https://www.shodan.io/search/facet?query=hostname%3AExample.com&facet=ip",
		"HTTP://WWW.example.org":         "https://www.shodan.io/search/facet?query=hostname%3Aexample.org&facet=ip",
		"sub.example.net":                "https://www.shodan.io/search/facet?query=hostname%3Asub.example.net&facet=ip",
		"   ":                            "",
		"my host.example":                "https://www.shodan.io/search/facet?query=hostname%3Amy%20host.example&facet=ip",
	}
	for in, want := range cases {
		if got := FacetURL(in); got != want {
			t.Errorf("FacetURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescribeCPE(t *testing.T) {
	if got := DescribeCPE("cpe:/a:apache:http_server:2.4.41"); got != "Apache - Web server" {
		t.Errorf("Unexpected description %q", got)
	}
	if got := DescribeCPE("cpe:/a:nginx:nginx"); got != unknownCPE {
		t.Errorf("Expected unknown description, got %q", got)
	}
}

func TestPortService(t *testing.T) {
	if PortService(22) != "SSH" || PortService(8080) != "HTTP Proxy" {
		t.Errorf("Common ports not mapped")
	}
	if PortService(31337) != "" {
		t.Errorf("Uncommon port should have no service")
	}
}
