package countries

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+91", "IN", true},
		{"91", "IN", true},
		{"+1", "US", true},
		{"gb", "GB", true},
		{" CO ", "CO", true},
		{"+999", "", false},
		{"XX", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		c, ok := Lookup(tc.in)
		if ok != tc.ok || c.ShortCode != tc.want {
			t.Fatalf("Lookup(%q)=%+v,%v; want %s,%v", tc.in, c, ok, tc.want, tc.ok)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/countries", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got []Country
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(List) || got[0].ShortCode != "US" {
		t.Fatalf("got=%+v", got)
	}
}
