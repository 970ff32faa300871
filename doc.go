// Package scripthost embeds sandboxed WebAssembly and Lua scripts inside a
// host application and lets both sides call each other through a small,
// typed value protocol.
//
// A host registers Go callbacks with a Builder, grouped under named
// capabilities. Builder.Build returns a Host with no engine and no script;
// Host.LoadScript later compiles the guest source (Wasm bytes or Lua
// source) through the assigned engine. The concrete guest runtime lives
// in a separate Go module under engines/ (engines/wazero for WebAssembly,
// engines/lua for Lua) and is wired in by assigning Host.Engine; this
// package never imports either engine directly, so a consumer that only
// needs one guest language doesn't pull in the other's dependencies.
package scripthost
