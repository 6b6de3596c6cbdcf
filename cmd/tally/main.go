// Command tally runs an encrypted election end to end: key generation,
// encrypted ballots, a proven tally and its verification.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/party"
	"VoteProof/crypto/ring"
	"VoteProof/log"
	"VoteProof/message"
	"VoteProof/node"
	"VoteProof/prover"
	"VoteProof/vote"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML election file")
		params     = flag.String("params", "", "parameter set: "+strings.Join(paramNames(), ", "))
		mode       = flag.String("mode", "", "decrypt, encrypted-tally or self-contained")
		challenge  = flag.Int("challenge", -1, "size of the executor challenge, 0 disables it")
		level      = flag.String("log", "", "log level")
		out        = flag.String("out", "", "write the result message to this file")
		auditOnly  = flag.Bool("audit", false, "only follow and verify the elections seen by the node")
	)
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *params != "" {
		cfg.Params, cfg.Literal = *params, nil
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *challenge >= 0 {
		cfg.Challenge = *challenge
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *out != "" {
		cfg.Out = *out
	}
	if err := log.InitLoggerWithLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *auditOnly {
		if err := runAuditor(ctx, cfg); err != nil {
			log.Logger.Errorf("audit failed: %v", err)
			os.Exit(1)
		}
		return
	}
	report, err := run(ctx, cfg)
	if err != nil {
		log.Logger.Errorf("tally failed: %v", err)
		os.Exit(1)
	}
	for _, c := range cfg.Candidates {
		log.Logger.Infof("%-12s %d", c, report.Election.Result[c])
	}
	log.Logger.Infof("winners: %s, proof verified: %t", strings.Join(report.Election.Winners(), ", "), report.Verified)
}

func paramNames() []string {
	names := make([]string, len(bfv.DefaultParamsNames))
	for name, i := range bfv.DefaultParamsNames {
		names[i] = name
	}
	return names
}

// Report is what one run of the election produced.
type Report struct {
	Election *vote.Election
	Journal  *prover.Journal
	Proof    *prover.Proof
	ImageID  prover.Digest
	Verified bool
	Result   *message.ResultMessage
	Messages []message.Message
}

func runAuditor(ctx context.Context, cfg Config) error {
	if cfg.Node == nil {
		return fmt.Errorf("auditing needs a node section in the config")
	}
	n, err := node.NewNode(ctx, *cfg.Node, nil)
	if err != nil {
		return err
	}
	defer n.Close()
	newAuditor(n.ID()).listen(ctx, n.Messages())
	return nil
}

func run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.BFVParams()
	if err != nil {
		return nil, err
	}
	mode, _ := prover.ParseMode(cfg.Mode)
	log.Logger.Infof("election %q with %s in %s mode", cfg.Title, params, mode)

	kh, err := party.NewKeyHolder(params, ring.NewPRNG())
	if err != nil {
		return nil, err
	}
	defer kh.Close()
	poll := kh.NewPoll(cfg.Candidates)

	var n *node.Node
	organizer := "organizer"
	if cfg.Node != nil {
		if n, err = node.NewNode(ctx, *cfg.Node, nil); err != nil {
			return nil, err
		}
		defer n.Close()
		organizer = n.ID()
	}
	e := vote.NewElection(organizer, cfg.Title, cfg.Candidates)
	e.Deadline = e.StartTime.Add(cfg.Deadline)
	publish := func(msg message.Message) {
		if n == nil {
			return
		}
		if err := n.Publish(ctx, msg); err != nil {
			log.Logger.Warnf("cannot publish type %d: %v", msg.GetType(), err)
		}
	}
	if n != nil {
		if err := n.Join(e.Topic); err != nil {
			return nil, err
		}
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = 1
	}
	program := prover.TallyProgram(params, mode, poll.Columns())
	program.MaxBallots = max(prover.DefaultMaxBallots, len(cfg.Voters))
	p, err := prover.NewProver(program, workers)
	if err != nil {
		return nil, err
	}
	pollMsg, err := message.GenPollMessage(e, poll, p.ImageID())
	if err != nil {
		return nil, err
	}
	publish(pollMsg)
	sent := []message.Message{pollMsg}

	plain := make([][]int64, len(cfg.Voters))
	for i, v := range cfg.Voters {
		if plain[i], err = vote.EncodeChoice(v.Choice-1, len(cfg.Candidates)); err != nil {
			return nil, err
		}
		if mode == prover.ModeSelfContained {
			continue
		}
		msg, err := castBallot(e, party.NewParty(uint64(i), poll), v.Name, plain[i])
		if err != nil {
			return nil, err
		}
		sent = append(sent, msg)
	}
	if e.Closed(time.Now()) {
		return nil, fmt.Errorf("election closed at %s", e.Deadline)
	}

	witness, err := buildWitness(params, mode, kh, poll, e, []byte(cfg.Seed), plain)
	if err != nil {
		return nil, err
	}
	results := p.ProveAll(ctx, []*prover.Witness{witness})
	if err := results[0].Err; err != nil {
		publish(message.GenFaultMessage(e, organizer, err))
		return nil, err
	}
	if cfg.Challenge > 0 && mode != prover.ModeSelfContained {
		if err := answerChallenge(ctx, params, kh, poll, cfg.Challenge, workers); err != nil {
			publish(message.GenFaultMessage(e, organizer, err))
			return nil, err
		}
		log.Logger.Infof("executor answered a challenge of %d ciphertexts", cfg.Challenge)
	}

	journal, proof := results[0].Journal, results[0].Proof
	if err := applyJournal(e, kh, journal); err != nil {
		return nil, err
	}
	report := &Report{
		Election: e,
		Journal:  journal,
		Proof:    proof,
		ImageID:  p.ImageID(),
		Verified: prover.Verify(proof, journal, p.ImageID()),
	}

	msg, err := message.GenResultMessage(e, organizer, p.ImageID(), journal, proof)
	if err != nil {
		return nil, err
	}
	data, err := msg.MarshalJSON()
	if err != nil {
		return nil, err
	}
	parsed, err := message.ParseMsg(data)
	if err != nil {
		return nil, err
	}
	report.Result = parsed.(*message.ResultMessage)
	report.Messages = append(sent, msg)
	if _, err := message.VerifyResult(report.Result, p.ImageID()); err != nil {
		return nil, err
	}
	if cfg.Out != "" {
		if err := os.WriteFile(cfg.Out, data, 0o644); err != nil {
			return nil, err
		}
	}
	publish(msg)
	return report, nil
}

// castBallot sends the ballot through the message codec, the way it would
// reach the organizer, and records it.
func castBallot(e *vote.Election, voter *party.Party, name string, ticket []int64) (message.Message, error) {
	rows, err := voter.EncryptBallot(ticket)
	if err != nil {
		return nil, err
	}
	addr := vote.VoterAddress(name)
	data, err := message.GenBallotMessage(e, addr, addr, rows).MarshalJSON()
	if err != nil {
		return nil, err
	}
	msg, err := message.ParseMsg(data)
	if err != nil {
		return nil, err
	}
	b := msg.(*message.BallotMessage)
	return msg, e.AddBallot(b.Voter, b.Ballot)
}

func buildWitness(params *bfv.Parameters, mode prover.Mode, kh *party.KeyHolder, poll *party.Poll,
	e *vote.Election, seed []byte, plain [][]int64) (*prover.Witness, error) {
	if mode == prover.ModeSelfContained {
		return prover.NewSelfContainedWitness(params, seed, plain)
	}
	pk, err := poll.PublicKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b, err := prover.NewWitnessBuilder(params, mode, poll.Columns(), pk)
	if err != nil {
		return nil, err
	}
	for _, rows := range e.BallotRows() {
		if err := b.AddBallot(rows); err != nil {
			log.Logger.Warnf("ballot rejected: %v", err)
		}
	}
	if mode == prover.ModeDecrypt {
		sk, err := kh.SecretKeyBytes()
		if err != nil {
			return nil, err
		}
		if err := b.WithSecretKey(sk); err != nil {
			return nil, err
		}
	}
	log.Logger.Infof("witness: %d ballots accepted, %d rejected", b.Accepted(), len(b.Rejected()))
	return b.Build()
}

// answerChallenge has the executor tally a challenge of size ciphertexts
// with its own single column program, and checks the encrypted sum.
func answerChallenge(ctx context.Context, params *bfv.Parameters, kh *party.KeyHolder, poll *party.Poll, size, workers int) error {
	ch, err := kh.CreateChallenge(size)
	if err != nil {
		return err
	}
	cw, err := challengeWitness(params, poll, ch)
	if err != nil {
		return err
	}
	program := prover.TallyProgram(params, prover.ModeEncryptedTally, 1)
	program.MaxBallots = max(prover.DefaultMaxBallots, size)
	cp, err := prover.NewProver(program, workers)
	if err != nil {
		return err
	}
	res := cp.ProveAll(ctx, []*prover.Witness{cw})[0]
	if res.Err != nil {
		return res.Err
	}
	if err := prover.VerifyProof(res.Proof, res.Journal, cp.ImageID()); err != nil {
		return err
	}
	return kh.VerifyChallenge(ch, res.Journal.EncryptedTallies[0])
}

// challengeWitness tallies the challenge ciphertexts as a single column
// election.
func challengeWitness(params *bfv.Parameters, poll *party.Poll, ch *party.Challenge) (*prover.Witness, error) {
	pk, err := poll.PublicKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b, err := prover.NewWitnessBuilder(params, prover.ModeEncryptedTally, 1, pk)
	if err != nil {
		return nil, err
	}
	for _, ct := range ch.Ballots {
		if err := b.AddBallot([][]byte{ct}); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func applyJournal(e *vote.Election, kh *party.KeyHolder, journal *prover.Journal) error {
	if journal.Mode != prover.ModeEncryptedTally {
		return e.ApplyJournal(journal)
	}
	report, err := kh.NoiseReport(journal.EncryptedTallies)
	if err != nil {
		return err
	}
	log.Logger.Infof("tally noise: %s", report)
	tallies, err := kh.DecryptTallies(journal.EncryptedTallies)
	if err != nil {
		return err
	}
	return e.ApplyTallies(tallies, int(journal.BallotCount))
}
