// Package amqpx defines the generic interfaces required in order to perform requests against an AMQP broker.
// These interfaces only cover operations expected by the AMQP protocol, which means technically we should be
// able to add a new AMQP broker type and this library will be able to use it once the bindings necessary to
// implement the interfaces are made.
//
// The hard parts of AMQP messaging, connection negotiation, frame encoding, flow control and broker-side state,
// live inside the wrapped client library. What this package owns is the channel lifecycle, the acknowledgement
// state of received deliveries, and the interpretation of message payloads.
//
// The only implementation provided at the time of writing is:
// - rabbitmq (github.com/gimantha/amqpx/rabbitmq)
package amqpx
