// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/petalops/irisflow/transport/aws"
	_ "github.com/petalops/irisflow/transport/channel"
	_ "github.com/petalops/irisflow/transport/http"
	_ "github.com/petalops/irisflow/transport/kafka"
	_ "github.com/petalops/irisflow/transport/nats"
	_ "github.com/petalops/irisflow/transport/rabbitmq"
)
