package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tgotp/internal/common"
)

const botToken = "123456:TEST-bot-token"

const userJSON = `{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost","language_code":"ru","is_premium":true}`

func sampleFields() map[string]string {
	return map[string]string{
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      userJSON,
		"auth_date": "1662771648",
	}
}

// handSigned follows the documented derivation step by step.
func handSigned(t *testing.T, fields map[string]string, token string) string {
	t.Helper()
	check := "auth_date=" + fields["auth_date"] + "\nquery_id=" + fields["query_id"] + "\nuser=" + fields["user"]

	k := hmac.New(sha256.New, []byte("WebAppData"))
	k.Write([]byte(token))
	m := hmac.New(sha256.New, k.Sum(nil))
	m.Write([]byte(check))

	q := url.Values{}
	for key, v := range fields {
		q.Set(key, v)
	}
	q.Set("hash", hex.EncodeToString(m.Sum(nil)))
	return q.Encode()
}

func TestVerify_Success(t *testing.T) {
	payload := handSigned(t, sampleFields(), botToken)

	data, err := Verify(payload, botToken)
	require.NoError(t, err)
	require.NoError(t, data.UserErr)

	assert.Equal(t, Identity{
		ID:           279058397,
		Username:     "vdkfrost",
		FirstName:    "Vladislav",
		LastName:     "Kibenko",
		LanguageCode: "ru",
	}, data.Identity)
	assert.Equal(t, "AAHdF6IQAAAAAN0XohDhrOrc", data.Fields["query_id"])
	assert.NotContains(t, data.Fields, "hash")
	assert.Equal(t, userJSON, data.RawUser)

	at, ok := data.AuthDate()
	require.True(t, ok)
	assert.Equal(t, int64(1662771648), at.Unix())
}

func TestVerify_EncodeAgreesWithDerivation(t *testing.T) {
	assert.Equal(t, handSigned(t, sampleFields(), botToken), Encode(sampleFields(), botToken))
}

func TestVerify_MissingHash(t *testing.T) {
	_, err := Verify("auth_date=1&user=%7B%7D", botToken)
	assert.ErrorIs(t, err, common.ErrMissingHash)
}

func TestVerify_WrongBotToken(t *testing.T) {
	_, err := Verify(Encode(sampleFields(), botToken), "other-token")
	assert.ErrorIs(t, err, common.ErrSignatureMismatch)
}

func TestVerify_FlippedHashByte(t *testing.T) {
	payload := Encode(sampleFields(), botToken)
	q, err := url.ParseQuery(payload)
	require.NoError(t, err)
	hash := q.Get("hash")

	for i := 0; i < len(hash); i++ {
		b := []byte(hash)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		q.Set("hash", string(b))

		_, err := Verify(q.Encode(), botToken)
		require.ErrorIs(t, err, common.ErrSignatureMismatch, "position %d", i)
	}
}

func TestVerify_TamperedField(t *testing.T) {
	payload := Encode(sampleFields(), botToken)

	tampered := []string{
		strings.Replace(payload, "auth_date=1662771648", "auth_date=1662771649", 1),
		strings.Replace(payload, "query_id=AAHdF6IQAAAAAN0XohDhrOrc", "query_id=AAHdF6IQAAAAAN0XohDhrOrd", 1),
		strings.Replace(payload, "279058397", "279058398", 1),
		payload + "&extra=1",
	}
	for _, p := range tampered {
		require.NotEqual(t, payload, p)
		_, err := Verify(p, botToken)
		assert.ErrorIs(t, err, common.ErrSignatureMismatch, "payload %q", p)
	}
}

func TestVerify_UppercaseHashRejected(t *testing.T) {
	payload := Encode(sampleFields(), botToken)
	q, err := url.ParseQuery(payload)
	require.NoError(t, err)
	q.Set("hash", strings.ToUpper(q.Get("hash")))

	_, err = Verify(q.Encode(), botToken)
	assert.ErrorIs(t, err, common.ErrSignatureMismatch)
}

func TestVerify_MalformedUserIsSoft(t *testing.T) {
	fields := sampleFields()
	fields["user"] = `{"id":`
	data, err := Verify(Encode(fields, botToken), botToken)
	require.NoError(t, err)

	assert.True(t, errors.Is(data.UserErr, common.ErrMalformedUserField))
	assert.Equal(t, `{"id":`, data.RawUser)
	assert.Zero(t, data.Identity.ID)
	assert.Equal(t, "en", data.Identity.LanguageCode)
}

func TestVerify_PartlyMalformedUserKeepsDecodedFields(t *testing.T) {
	fields := sampleFields()
	fields["user"] = `{"id":42,"username":7,"first_name":"Ann"}`
	data, err := Verify(Encode(fields, botToken), botToken)
	require.NoError(t, err)

	assert.ErrorIs(t, data.UserErr, common.ErrMalformedUserField)
	assert.Equal(t, Identity{ID: 42, FirstName: "Ann", LanguageCode: "en"}, data.Identity)
}

func TestVerify_DefaultLanguage(t *testing.T) {
	fields := sampleFields()
	fields["user"] = `{"id":42,"first_name":"A"}`
	data, err := Verify(Encode(fields, botToken), botToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.Identity.ID)
	assert.Equal(t, "en", data.Identity.LanguageCode)
}

func TestVerifier_MaxAge(t *testing.T) {
	payload := Encode(sampleFields(), botToken)
	authDate := time.Unix(1662771648, 0)

	fresh := NewVerifier(botToken, WithMaxAge(time.Hour), WithClock(func() time.Time { return authDate.Add(59 * time.Minute) }))
	_, err := fresh.Verify(payload)
	require.NoError(t, err)

	stale := NewVerifier(botToken, WithMaxAge(time.Hour), WithClock(func() time.Time { return authDate.Add(61 * time.Minute) }))
	_, err = stale.Verify(payload)
	assert.ErrorIs(t, err, common.ErrInitDataExpired)

	fields := sampleFields()
	delete(fields, "auth_date")
	_, err = fresh.Verify(Encode(fields, botToken))
	assert.ErrorIs(t, err, common.ErrInitDataExpired)

	// signature is checked before freshness
	_, err = stale.Verify(payload + "x")
	assert.ErrorIs(t, err, common.ErrSignatureMismatch)
}

func TestBearerToken(t *testing.T) {
	raw, err := BearerToken("Bearer query_id=1&hash=ab")
	require.NoError(t, err)
	assert.Equal(t, "query_id=1&hash=ab", raw)

	for _, h := range []string{"", "Bearer ", "Basic abc", "bearer x"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, common.ErrMissingAuthorization, "header %q", h)
	}
}
