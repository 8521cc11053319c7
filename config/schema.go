package config

import "github.com/invopop/jsonschema"

// Schema describes StepConf documents as accepted by Load.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(StepConf))
	schema.Title = "feather2d step configuration"
	schema.Description = "Tunables of the collision pipeline and the constraint solver. Omitted fields keep their defaults."
	return schema
}
