package util

import (
	"fmt"
	"sync/atomic"
)

// util/SetOnce.java

/*
A convenient type which offers a semi-immutable object wrapper which
can be set only once. A second Set() panics.

It is used to bind a configuration to exactly one writer.
*/
type SetOnce struct {
	value atomic.Value
	set   int32
}

func NewSetOnce() *SetOnce {
	return &SetOnce{}
}

func (so *SetOnce) Set(obj interface{}) {
	if !atomic.CompareAndSwapInt32(&so.set, 0, 1) {
		panic("The object cannot be set twice!")
	}
	so.value.Store(&obj)
}

func (so *SetOnce) Get() interface{} {
	if p, ok := so.value.Load().(*interface{}); ok {
		return *p
	}
	return nil
}

func (so *SetOnce) String() string {
	return fmt.Sprintf("%v", so.Get())
}
