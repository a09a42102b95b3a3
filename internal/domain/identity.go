package domain

// Roles reconocidos por el verificador de credenciales.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// Identity es el resultado de verificar una credencial de conexión.
type Identity struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (i Identity) IsStaff() bool {
	return i.Role == RoleStaff
}
