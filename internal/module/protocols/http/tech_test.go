package http

import "testing"

func TestTechSignatures_NginxVersionExtraction(t *testing.T) {
	for _, sig := range techSignatures {
		if sig.name != "nginx" {
			continue
		}
		match := sig.versionRe.FindStringSubmatch("nginx/1.18.0 (Ubuntu)")
		if match == nil || match[1] != "1.18.0" {
			t.Errorf("nginx signature match = %v, want version 1.18.0", match)
		}
		return
	}
	t.Fatal("no nginx signature registered")
}

func TestTechSignatures_ExpressWithoutVersionStillMatches(t *testing.T) {
	for _, sig := range techSignatures {
		if sig.name != "Express" {
			continue
		}
		match := sig.versionRe.FindStringSubmatch("Express")
		if match == nil {
			t.Error("Express signature did not match bare header value")
		}
		return
	}
	t.Fatal("no Express signature registered")
}
