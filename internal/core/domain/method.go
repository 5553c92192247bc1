package domain

// ProtocolType selects the worker fleet a method runs on.
type ProtocolType string

const (
	ProtocolHTTP ProtocolType = "http"
	ProtocolTCP  ProtocolType = "tcp"
	ProtocolUDP  ProtocolType = "udp"
	ProtocolDNS  ProtocolType = "dns"
	ProtocolICMP ProtocolType = "icmp"
)

// MethodInfo describes one load-generation strategy.
type MethodInfo struct {
	Name        string            `json:"name"`
	Protocol    ProtocolType      `json:"protocol"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Methods is the static catalog of supported load-generation strategies.
// ICMP_FLOOD is catalogued for enumeration but no fleet dispatches it yet.
var Methods = map[string]MethodInfo{
	"HTTP_FLOOD": {
		Name:        "HTTP_FLOOD",
		Protocol:    ProtocolHTTP,
		Description: "High volume HTTP GET request flood",
		Parameters:  map[string]string{"rpc": "Requests per connection"},
	},
	"HTTP_BYPASS": {
		Name:        "HTTP_BYPASS",
		Protocol:    ProtocolHTTP,
		Description: "HTTP request flood with WAF bypass techniques",
	},
	"SSL_FLOOD": {
		Name:        "SSL_FLOOD",
		Protocol:    ProtocolHTTP,
		Description: "HTTPS request flood with TLS renegotiation",
	},
	"SLOW_LORIS": {
		Name:        "SLOW_LORIS",
		Protocol:    ProtocolHTTP,
		Description: "Slow-rate HTTP request flood that keeps connections open",
	},
	"TCP_FLOOD": {
		Name:        "TCP_FLOOD",
		Protocol:    ProtocolTCP,
		Description: "High volume TCP packet flood",
	},
	"TCP_CONNECTION": {
		Name:        "TCP_CONNECTION",
		Protocol:    ProtocolTCP,
		Description: "TCP connection flood that establishes full connections",
	},
	"SYN_FLOOD": {
		Name:        "SYN_FLOOD",
		Protocol:    ProtocolTCP,
		Description: "Raw socket TCP SYN flood with spoofed sources",
	},
	"UDP_FLOOD": {
		Name:        "UDP_FLOOD",
		Protocol:    ProtocolUDP,
		Description: "High volume UDP packet flood",
	},
	"DNS_FLOOD": {
		Name:        "DNS_FLOOD",
		Protocol:    ProtocolDNS,
		Description: "DNS query flood targeting DNS servers",
	},
	"ICMP_FLOOD": {
		Name:        "ICMP_FLOOD",
		Protocol:    ProtocolICMP,
		Description: "ICMP echo request flood",
	},
}

// MethodExists reports whether the catalog knows the named method.
func MethodExists(name string) bool {
	_, ok := Methods[name]
	return ok
}
