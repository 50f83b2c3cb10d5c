package countries

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Country is the response model for the registration country picker
// { id, name, short_code, phone_code }
type Country struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	PhoneCode int    `json:"phone_code"`
}

// List is the static set offered at sign-up.
var List = []Country{
	{ID: 1, Name: "United States", ShortCode: "US", PhoneCode: 1},
	{ID: 2, Name: "Canada", ShortCode: "CA", PhoneCode: 1},
	{ID: 3, Name: "India", ShortCode: "IN", PhoneCode: 91},
	{ID: 4, Name: "United Kingdom", ShortCode: "GB", PhoneCode: 44},
	{ID: 5, Name: "Australia", ShortCode: "AU", PhoneCode: 61},
	{ID: 6, Name: "Colombia", ShortCode: "CO", PhoneCode: 57},
	{ID: 7, Name: "Mexico", ShortCode: "MX", PhoneCode: 52},
	{ID: 8, Name: "Spain", ShortCode: "ES", PhoneCode: 34},
	{ID: 9, Name: "Argentina", ShortCode: "AR", PhoneCode: 54},
	{ID: 10, Name: "Chile", ShortCode: "CL", PhoneCode: 56},
}

// Lookup accepts a dialing code ("+91", "91") or a short code ("IN").
// Shared dialing codes resolve to the first entry in List.
func Lookup(code string) (Country, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Country{}, false
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(code, "+")); err == nil {
		for _, c := range List {
			if c.PhoneCode == n {
				return c, true
			}
		}
		return Country{}, false
	}
	for _, c := range List {
		if strings.EqualFold(c.ShortCode, code) {
			return c, true
		}
	}
	return Country{}, false
}

// RegisterRoutes registers GET /countries.
func RegisterRoutes(r gin.IRouter) {
	r.GET("/countries", func(c *gin.Context) {
		c.JSON(http.StatusOK, List)
	})
}
