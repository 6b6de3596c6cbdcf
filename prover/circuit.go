package prover

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"VoteProof/crypto/bfv"
)

func init() {
	solver.RegisterHint(divModHint)
}

// divModHint returns the quotient and remainder of inputs[0] by inputs[1].
func divModHint(_ *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 || len(outputs) != 2 {
		return fmt.Errorf("divModHint: %d inputs, %d outputs", len(inputs), len(outputs))
	}
	if inputs[1].Sign() == 0 {
		return fmt.Errorf("divModHint: division by zero")
	}
	outputs[0].DivMod(inputs[0], inputs[1], outputs[1])
	return nil
}

// shape holds the constants a program circuit is compiled for.
type shape struct {
	mode     Mode
	n        int
	q, t     uint64
	eta      uint64
	columns  int
	capacity int
}

func shapeOf(program Program) (shape, *bfv.Parameters, error) {
	if err := program.Validate(); err != nil {
		return shape{}, nil, err
	}
	params, err := bfv.NewParametersFromLiteral(program.Params)
	if err != nil {
		return shape{}, nil, err
	}
	return shape{
		mode:     program.Mode,
		n:        params.N(),
		q:        params.Q(),
		t:        params.T(),
		eta:      uint64(params.NoiseEta()),
		columns:  program.Columns,
		capacity: program.MaxBallots,
	}, params, nil
}

func vars(n int) []frontend.Variable {
	return make([]frontend.Variable, n)
}

func ciphertextVars(n int) [2][]frontend.Variable {
	return [2][]frontend.Variable{vars(n), vars(n)}
}

func ballotVars(s shape) [][][2][]frontend.Variable {
	ballots := make([][][2][]frontend.Variable, s.capacity)
	for i := range ballots {
		ballots[i] = make([][2][]frontend.Variable, s.columns)
		for j := range ballots[i] {
			ballots[i][j] = ciphertextVars(s.n)
		}
	}
	return ballots
}

// circuit returns the empty circuit of the shape, ready to compile.
func (s shape) circuit() frontend.Circuit {
	switch s.mode {
	case ModeDecrypt:
		return &decryptCircuit{
			PublicKey: ciphertextVars(s.n),
			Ballots:   ballotVars(s),
			Tallies:   vars(s.columns),
			Secret:    vars(s.n),
			shape:     s,
		}
	case ModeEncryptedTally:
		sums := make([][2][]frontend.Variable, s.columns)
		for j := range sums {
			sums[j] = ciphertextVars(s.n)
		}
		return &sumCircuit{Ballots: ballotVars(s), Sums: sums, shape: s}
	default:
		plain := make([][]frontend.Variable, s.capacity)
		for i := range plain {
			plain[i] = vars(s.columns)
		}
		return &plainCircuit{Tallies: vars(s.columns), Seed: vars(seedElements), Plain: plain, shape: s}
	}
}

// decryptCircuit proves that the tallies decrypt the column sums of the
// ballots under the secret key of the public key.
type decryptCircuit struct {
	Binding   frontend.Variable          `gnark:",public"`
	PublicKey [2][]frontend.Variable     `gnark:",public"`
	Ballots   [][][2][]frontend.Variable `gnark:",public"`
	Tallies   []frontend.Variable        `gnark:",public"`

	BindingSquare frontend.Variable   `gnark:",secret"`
	Secret        []frontend.Variable `gnark:",secret"`

	shape shape `gnark:"-"`
}

func (c *decryptCircuit) Define(api frontend.API) error {
	b := &circuitBuilder{api: api, shape: c.shape}
	b.bind(c.Binding, c.BindingSquare)
	b.ternary(c.Secret)
	b.keyRelation(c.PublicKey, c.Secret)
	for j := 0; j < c.shape.columns; j++ {
		sum := b.columnSum(c.Ballots, j)
		b.decode(b.phase(sum, c.Secret), c.Tallies[j])
	}
	return b.err
}

// sumCircuit proves that the sums are the column sums of the ballots.
type sumCircuit struct {
	Binding frontend.Variable          `gnark:",public"`
	Ballots [][][2][]frontend.Variable `gnark:",public"`
	Sums    [][2][]frontend.Variable   `gnark:",public"`

	BindingSquare frontend.Variable `gnark:",secret"`

	shape shape `gnark:"-"`
}

func (c *sumCircuit) Define(api frontend.API) error {
	b := &circuitBuilder{api: api, shape: c.shape}
	b.bind(c.Binding, c.BindingSquare)
	for j := 0; j < c.shape.columns; j++ {
		sum := b.columnSum(c.Ballots, j)
		for k := range sum {
			for i := range sum[k] {
				api.AssertIsEqual(sum[k][i], c.Sums[j][k][i])
			}
		}
	}
	return b.err
}

// plainCircuit proves that the tallies are the column sums mod T of the
// plaintexts under Commitment.
type plainCircuit struct {
	Binding    frontend.Variable   `gnark:",public"`
	Commitment frontend.Variable   `gnark:",public"`
	Count      frontend.Variable   `gnark:",public"`
	Tallies    []frontend.Variable `gnark:",public"`

	BindingSquare frontend.Variable     `gnark:",secret"`
	Seed          []frontend.Variable   `gnark:",secret"`
	Plain         [][]frontend.Variable `gnark:",secret"`

	shape shape `gnark:"-"`
}

func (c *plainCircuit) Define(api frontend.API) error {
	b := &circuitBuilder{api: api, shape: c.shape}
	b.bind(c.Binding, c.BindingSquare)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Count)
	h.Write(c.Seed...)
	for _, row := range c.Plain {
		for _, v := range row {
			b.atMost(v, c.shape.t-1)
		}
		h.Write(row...)
	}
	api.AssertIsEqual(h.Sum(), c.Commitment)

	for j := 0; j < c.shape.columns; j++ {
		var sum frontend.Variable = 0
		for _, row := range c.Plain {
			sum = api.Add(sum, row[j])
		}
		_, rem := b.divMod(sum, c.shape.t, uint64(c.shape.capacity-1), c.shape.t-1)
		api.AssertIsEqual(rem, c.Tallies[j])
	}
	return b.err
}

// circuitBuilder emits the constraints shared by the circuits. It keeps the
// first error.
type circuitBuilder struct {
	api   frontend.API
	shape shape
	err   error
}

// bind makes the binding a constrained public input.
func (b *circuitBuilder) bind(binding, square frontend.Variable) {
	b.api.AssertIsEqual(b.api.Mul(binding, binding), square)
}

// atMost constrains 0 <= v <= bound. Both must stay far below the field size.
func (b *circuitBuilder) atMost(v frontend.Variable, bound uint64) {
	if bound == 0 {
		b.api.AssertIsEqual(v, 0)
		return
	}
	n := bits.Len64(bound)
	b.api.ToBinary(v, n)
	if bound != uint64(1)<<n-1 {
		b.api.ToBinary(b.api.Sub(bound, v), n)
	}
}

// divMod constrains x = quo*d + rem with quo <= maxQuo and rem <= maxRem.
func (b *circuitBuilder) divMod(x frontend.Variable, d, maxQuo, maxRem uint64) (quo, rem frontend.Variable) {
	out, err := b.api.Compiler().NewHint(divModHint, 2, x, d)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return 0, 0
	}
	quo, rem = out[0], out[1]
	b.atMost(quo, maxQuo)
	b.atMost(rem, maxRem)
	b.api.AssertIsEqual(x, b.api.Add(b.api.Mul(quo, d), rem))
	return quo, rem
}

func (b *circuitBuilder) ternary(s []frontend.Variable) {
	for _, v := range s {
		b.api.AssertIsEqual(b.api.Mul(v, b.api.Sub(v, 1), b.api.Add(v, 1)), 0)
	}
}

// mulNegacyclic returns a*s in Z[X]/(X^N+1), not reduced mod Q.
func (b *circuitBuilder) mulNegacyclic(a, s []frontend.Variable) []frontend.Variable {
	n := len(a)
	out := make([]frontend.Variable, n)
	for k := range out {
		out[k] = 0
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := b.api.Mul(a[i], s[j])
			if k := i + j; k < n {
				out[k] = b.api.Add(out[k], p)
			} else {
				out[k-n] = b.api.Sub(out[k-n], p)
			}
		}
	}
	return out
}

// keyRelation constrains pk0 + pk1*s = e mod Q with |e| <= eta.
func (b *circuitBuilder) keyRelation(pk [2][]frontend.Variable, s []frontend.Variable) {
	n, q, eta := uint64(b.shape.n), b.shape.q, b.shape.eta
	as := b.mulNegacyclic(pk[1], s)
	for k := range as {
		// pk0 + pk1*s + N*Q + eta lies in [0, (2N+1)Q + eta)
		x := b.api.Add(pk[0][k], as[k], n*q+eta)
		b.divMod(x, q, 2*n+1, 2*eta)
	}
}

// columnSum returns the ballots of column j added mod Q.
func (b *circuitBuilder) columnSum(ballots [][][2][]frontend.Variable, j int) [2][]frontend.Variable {
	q, maxQuo := b.shape.q, uint64(b.shape.capacity-1)
	var sum [2][]frontend.Variable
	for k := range sum {
		sum[k] = make([]frontend.Variable, b.shape.n)
		for i := range sum[k] {
			var x frontend.Variable = 0
			for _, ballot := range ballots {
				x = b.api.Add(x, ballot[j][k][i])
			}
			_, sum[k][i] = b.divMod(x, q, maxQuo, q-1)
		}
	}
	return sum
}

// phase returns c0 + c1*s mod Q.
func (b *circuitBuilder) phase(ct [2][]frontend.Variable, s []frontend.Variable) []frontend.Variable {
	n, q := uint64(b.shape.n), b.shape.q
	cs := b.mulNegacyclic(ct[1], s)
	v := make([]frontend.Variable, len(cs))
	for k := range cs {
		x := b.api.Add(ct[0][k], cs[k], n*q)
		_, v[k] = b.divMod(x, q, 2*n, q-1)
	}
	return v
}

// decode constrains the rounding of T*v/Q: every coefficient within Q/4 of
// a scaled residue, the constant one decoding to tally, the others to zero.
func (b *circuitBuilder) decode(v []frontend.Variable, tally frontend.Variable) {
	api := b.api
	q, t := b.shape.q, b.shape.t
	half, quarter := q>>1, q>>2
	for k := range v {
		x := api.Add(api.Mul(v[k], t), half)
		out, err := api.Compiler().NewHint(divModHint, 2, x, q)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			return
		}
		m, rem := out[0], out[1]
		// |rem - Q/2| <= Q/4
		b.atMost(api.Sub(rem, half-quarter), 2*quarter)
		api.AssertIsEqual(x, api.Add(api.Mul(m, q), rem))
		// m lies in [0, T]: reduce it once more
		_, res := b.divMod(m, t, 1, t-1)
		if k == 0 {
			api.AssertIsEqual(res, tally)
		} else {
			api.AssertIsEqual(res, 0)
		}
	}
}
