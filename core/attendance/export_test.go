package attendance

// SetRandCodeFunc replaces the code generator until the returned func is called.
func SetRandCodeFunc(fn func() (string, error)) (restore func()) {
	orig := randCodeFunc
	randCodeFunc = fn
	return func() { randCodeFunc = orig }
}

var RandomCode = randomCode
