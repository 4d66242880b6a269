package auth

import (
	"errors"
	"net/url"
	"testing"
)

const testBotToken = "12345:TEST_TOKEN"

func buildInitData(values map[string]string, hash string) string {
	out := ""
	for k, v := range values {
		out += k + "=" + v + "&"
	}
	return out + "hash=" + hash
}

func TestVerifyRoundTrip(t *testing.T) {
	values := map[string]string{
		"auth_date": "1724928000",
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      url.QueryEscape(`{"id":99281932,"first_name":"Andrew","username":"rogue"}`),
	}
	initData := buildInitData(values, ComputeHash(values, testBotToken))

	verified, err := Verify(initData, testBotToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	profile, err := ProfileFromValues(verified)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != "99281932" || profile.Username != "rogue" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	values := map[string]string{"auth_date": "1724928000", "id": "1"}
	initData := buildInitData(values, ComputeHash(values, testBotToken))

	if _, err := Verify(initData, "other-token"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected verification failure with wrong token, got %v", err)
	}

	tampered := buildInitData(map[string]string{"auth_date": "1724928001", "id": "1"},
		ComputeHash(values, testBotToken))
	if _, err := Verify(tampered, testBotToken); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected verification failure for tampered payload, got %v", err)
	}
}

func TestVerifyRejectsMissingHash(t *testing.T) {
	if _, err := Verify("auth_date=1&id=2", testBotToken); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected failure without hash, got %v", err)
	}
}

func TestParseInitDataMalformed(t *testing.T) {
	if _, _, err := ParseInitData("not-a-query-string"); !errors.Is(err, ErrMalformedInitData) {
		t.Fatalf("expected ErrMalformedInitData, got %v", err)
	}
	if _, _, err := ParseInitData(""); !errors.Is(err, ErrMalformedInitData) {
		t.Fatalf("expected ErrMalformedInitData for empty input, got %v", err)
	}
}

func TestProfileFromValuesFlatKeys(t *testing.T) {
	profile, err := ProfileFromValues(map[string]string{
		"id":         "777",
		"first_name": "Dana",
		"username":   "dquiz",
	})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != "777" || profile.FirstName != "Dana" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestProfileFromJSONNumericAndStringIDs(t *testing.T) {
	profile, err := ProfileFromJSON([]byte(`{"id":42,"first_name":"Nia"}`))
	if err != nil {
		t.Fatalf("numeric id: %v", err)
	}
	if profile.ID != "42" {
		t.Fatalf("expected id 42, got %q", profile.ID)
	}

	profile, err = ProfileFromJSON([]byte(`{"id":"abc","username":"str"}`))
	if err != nil {
		t.Fatalf("string id: %v", err)
	}
	if profile.ID != "abc" {
		t.Fatalf("expected id abc, got %q", profile.ID)
	}

	if _, err := ProfileFromJSON([]byte(`{"first_name":"NoID"}`)); !errors.Is(err, ErrMalformedInitData) {
		t.Fatalf("expected ErrMalformedInitData without id, got %v", err)
	}
}
