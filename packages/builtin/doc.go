// Package builtin provides the function registry backing ${{...}}
// placeholder expressions in case data.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current time as "2006-01-02 15:04:05"
//   - date(layout): current date in the given Go layout
//   - timestamp() / timestampMs(): Unix timestamp in seconds/milliseconds
//   - random_int(min, max): random integer in range
//   - random_string(length): random alphanumeric string
//   - random_phone(): syntactically valid mobile number
//   - md5(value) / base64(value): digests and encoding
//
// The environment layer registers host() and app_host() bound to the active
// project configuration.
package builtin
