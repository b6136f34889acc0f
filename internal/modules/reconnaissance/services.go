// internal/modules/reconnaissance/services.go
package reconnaissance

import (
	"net/url"
	"regexp"
	"strings"
)

var commonPorts = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	8080: "HTTP Proxy",
}

// PortService names the well-known service on port, or "" if none.
func PortService(port int) string {
	return commonPorts[port]
}

// Ordered: the first matching prefix wins.
var cpeDescriptions = []struct {
	prefix, desc string
}{
	{"cpe:/a:openbsd:openssh", "OpenSSH - Secure remote login"},
	{"cpe:/a:php:php", "PHP - Web programming language"},
	{"cpe:/a:oracle:mysql", "MySQL - Database server"},
	{"cpe:/a:webmin:webmin", "Webmin - Server administration tool"},
	{"cpe:/a:getbootstrap:bootstrap", "Bootstrap - CSS framework"},
	{"cpe:/a:apache:http_server", "Apache - Web server"},
	{"cpe:/a:jivochat:jivochat", "JivoChat - Live chat widget"},
	{"cpe:/a:jquery:jquery", "jQuery - JavaScript library"},
	{"cpe:/a:postfix:postfix", "Postfix - Mail server"},
}

const unknownCPE = "Unknown"

// DescribeCPE returns a short product description for a CPE string.
func DescribeCPE(cpe string) string {
	for _, d := range cpeDescriptions {
		if strings.HasPrefix(cpe, d.prefix) {
			return d.desc
		}
	}
	return unknownCPE
}

var (
	schemePrefix = regexp.MustCompile(`(?i)^https?://`)
	wwwPrefix    = regexp.MustCompile(`(?i)^www\.`)
)

// FacetURL builds a Shodan facet search listing the IPs behind a hostname.
// It returns "" for blank input.
func FacetURL(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	domain := schemePrefix.ReplaceAllString(input, "")
	domain = wwwPrefix.ReplaceAllString(domain, "")
	domain = strings.SplitN(domain, "/", 2)[0]
	return "https://www.shodan.io/search/facet?query=hostname%3A" + componentEscape(domain) + "&facet=ip"
}

// componentEscape percent-encodes like encodeURIComponent: spaces become %20.
func componentEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
