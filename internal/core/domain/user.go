package domain

// User is owned by the identity provider; the portal references it but never
// stores it. Vendors is the set of vendor ids the user belongs to.
type User struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Vendors []string `json:"vendors"`
	IsAdmin bool     `json:"isAdmin"`
}

// HasVendor reports whether the user is a member of the given vendor.
func (u *User) HasVendor(vendorID string) bool {
	for _, v := range u.Vendors {
		if v == vendorID {
			return true
		}
	}
	return false
}
