package fetch

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock_Cloudflare403(t *testing.T) {
	resp := &http.Response{
		StatusCode: 403,
		Header:     http.Header{"Cf-Ray": {"abc123"}},
	}
	blocked, bt := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_Cloudflare503Server(t *testing.T) {
	resp := &http.Response{
		StatusCode: 503,
		Header:     http.Header{"Server": {"cloudflare"}},
	}
	blocked, bt := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_CloudflareChallengeBody(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Checking your browser before accessing the site</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_CaptchaInBody(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Please complete the reCAPTCHA to continue</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockCaptcha, bt)
}

func TestDetectBlock_LoginWall401(t *testing.T) {
	resp := &http.Response{StatusCode: 401, Header: http.Header{}}
	blocked, bt := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockLoginWall, bt)
}

func TestDetectBlock_LoginWallBody(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Log in to continue viewing this profile</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockLoginWall, bt)
}

func TestDetectBlock_InstagramLoginTitle(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><head><title>Login • Instagram</title></head><body></body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockLoginWall, bt)
}

func TestDetectBlock_ConsentWall(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Before you continue, we use cookies and data to measure audience engagement</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockConsentWall, bt)
}

func TestDetectBlock_ConsentWallNeedsBothMarkers(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Before you continue reading, here is our full tour schedule and booking details for the year</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_AgeGate(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>This video may be inappropriate. Please confirm your age to proceed.</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockAgeGate, bt)
}

func TestDetectBlock_JSShell(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><noscript>Enable JavaScript to continue</noscript></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockJSShell, bt)
}

func TestDetectBlock_JSShellMetaRefresh(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><head><meta http-equiv="refresh" content="0;url=/app"></head></html>`)
	blocked, bt := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockJSShell, bt)
}

func TestDetectBlock_LargeBodyWithNoscriptNotShell(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	filler := strings.Repeat("Tour dates, merch, and booking information for the band. ", 50)
	body := []byte("<html><noscript>analytics requires javascript</noscript><body>" + filler + "</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, nil)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_CleanPage(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte("<html><body>Welcome to the official site. Contact us for bookings.</body></html>")
	blocked, bt := DetectBlock(resp, body)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestBlockedError_Error(t *testing.T) {
	err := &BlockedError{Type: BlockLoginWall, URL: "https://www.instagram.com/artist"}
	assert.Equal(t, "fetch: blocked (login_wall): https://www.instagram.com/artist", err.Error())
}
