package client

import "strconv"

// BuildAPIURL returns "{scheme}://{host}:{port}{action}". With an empty
// action no URL is produced and ok is false.
func BuildAPIURL(scheme, host string, port int, action string) (apiURL string, ok bool) {
	if action == "" {
		return "", false
	}
	return scheme + "://" + host + ":" + strconv.Itoa(port) + action, true
}

// url builds the URL for a fixed, non-empty action path.
func (c *SandboxClient) url(action string) string {
	apiURL, _ := BuildAPIURL(c.cfg.Scheme, c.cfg.Host, c.cfg.Port, action)
	return apiURL
}
