package model

// Studio is a bookable room. Studios come from configuration and are never persisted.
type Studio struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Address     string `json:"address" mapstructure:"address"`
	Phone       string `json:"phone" mapstructure:"phone"`
	Description string `json:"description" mapstructure:"description"`
}

// DefaultStudios is used when the configuration does not list any studio.
var DefaultStudios = []Studio{
	{
		ID:          "barra",
		Name:        "Estudio Barra",
		Address:     "Av. Corrientes 1234",
		Phone:       "+54 11 4000-1000",
		Description: "Sala principal con barra y espejo, 40 m²",
	},
	{
		ID:          "sala-a",
		Name:        "Sala A",
		Address:     "Av. Corrientes 1234, 1er piso",
		Phone:       "+54 11 4000-1001",
		Description: "Sala de ensayo con piano de cola",
	},
	{
		ID:          "sala-b",
		Name:        "Sala B",
		Address:     "Av. Corrientes 1234, 1er piso",
		Phone:       "+54 11 4000-1002",
		Description: "Sala de grabación con cabina aislada",
	},
}
