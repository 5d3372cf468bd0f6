package queue

import "testing"

func TestProcessRequestRoundTrip(t *testing.T) {
	raw, err := EncodeProcessRequest("doc-1")
	if err != nil {
		t.Fatalf("EncodeProcessRequest() error = %v", err)
	}
	req, err := DecodeProcessRequest(raw)
	if err != nil {
		t.Fatalf("DecodeProcessRequest() error = %v", err)
	}
	if req.DocumentID != "doc-1" || req.RequestedAt.IsZero() {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestDecodeProcessRequestLegacyAndInvalid(t *testing.T) {
	req, err := DecodeProcessRequest([]byte(" doc-2 "))
	if err != nil || req.DocumentID != "doc-2" {
		t.Fatalf("expected bare id, got %+v err=%v", req, err)
	}
	for _, bad := range []string{"", "{", `{"document_id":""}`} {
		if _, err := DecodeProcessRequest([]byte(bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
