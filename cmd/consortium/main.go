package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/schnorr"
	"github.com/luxfi/consortium/protocols/dkm"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

var (
	// Global flags
	configDir string
	curveType string
	timeout   time.Duration

	// Command options
	threshold    int
	members      int
	newThreshold int
	addMembers   []string
	removeIDs    []string
	signerIDs    []string
	messageHex   string
	messageFile  string
	outputFile   string

	rootCmd = &cobra.Command{
		Use:   "consortium",
		Short: "Dynamic threshold key management for a consortium",
		Long: `Manage a consortium's threshold key: generate it among the founding
members, add and remove members without changing the group public key, and
produce threshold Schnorr signatures.`,
	}

	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate a threshold key among the founding members",
		RunE:  runKeygen,
	}

	signCmd = &cobra.Command{
		Use:   "sign",
		Short: "Create a threshold signature",
		RunE:  runSign,
	}

	transitionCmd = &cobra.Command{
		Use:   "transition",
		Short: "Add or remove members, preserving the group key",
		RunE:  runTransition,
	}

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature against the group public key",
		RunE:  runVerify,
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a full lifecycle: keygen, sign, transition, sign again",
		RunE:  runSimulate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "d", "./consortium-data", "Directory for member key material")
	rootCmd.PersistentFlags().StringVarP(&curveType, "curve", "c", "secp256k1", "Elliptic curve")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Per-session timeout (0 = none)")

	keygenCmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Signing threshold (required)")
	keygenCmd.Flags().IntVarP(&members, "members", "N", 0, "Number of founding members (required)")
	keygenCmd.MarkFlagRequired("threshold")
	keygenCmd.MarkFlagRequired("members")

	signCmd.Flags().StringSliceVarP(&signerIDs, "signers", "s", nil, "Quorum member IDs (required)")
	signCmd.Flags().StringVar(&messageHex, "message", "", "Message to sign (hex encoded)")
	signCmd.Flags().StringVar(&messageFile, "message-file", "", "File containing the message to sign")
	signCmd.Flags().StringVarP(&outputFile, "output", "o", "signature.hex", "Output signature file")
	signCmd.MarkFlagRequired("signers")

	transitionCmd.Flags().StringSliceVar(&addMembers, "add", nil, "Member IDs to add")
	transitionCmd.Flags().StringSliceVar(&removeIDs, "remove", nil, "Member IDs to remove")
	transitionCmd.Flags().IntVar(&newThreshold, "new-threshold", 0, "New threshold (default: keep current)")

	verifyCmd.Flags().String("signature", "", "Signature file (required)")
	verifyCmd.Flags().String("public-key", "", "Group public key (hex encoded, required)")
	verifyCmd.Flags().StringVar(&messageHex, "message", "", "Message (hex encoded)")
	verifyCmd.Flags().StringVar(&messageFile, "message-file", "", "File containing the message")
	verifyCmd.MarkFlagRequired("signature")
	verifyCmd.MarkFlagRequired("public-key")

	simulateCmd.Flags().IntVarP(&threshold, "threshold", "t", 3, "Signing threshold")
	simulateCmd.Flags().IntVarP(&members, "members", "N", 5, "Number of founding members")

	rootCmd.AddCommand(keygenCmd, signCmd, transitionCmd, verifyCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	group, err := getCurve(curveType)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	ids := make([]party.ID, members)
	for i := range ids {
		ids[i] = party.ID(fmt.Sprintf("member-%d", i+1))
	}

	pl := pool.NewPool(0)
	defer pl.TearDown()

	g, err := dkm.NewGroup(group, ids, threshold, dkm.WithTimeout(timeout), dkm.WithPool(pl))
	if err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}
	if err := saveConfigs(g); err != nil {
		return err
	}

	keyBytes, err := g.GroupKey().MarshalBinary()
	if err != nil {
		return err
	}
	fmt.Printf("Key generation complete: %d members, threshold %d\n", members, threshold)
	fmt.Printf("Group public key: %s\n", hex.EncodeToString(keyBytes))
	fmt.Printf("Member key material saved under: %s\n", configDir)
	return nil
}

func runSign(cmd *cobra.Command, args []string) error {
	message, err := getMessage(cmd)
	if err != nil {
		return err
	}
	g, err := loadGroup()
	if err != nil {
		return err
	}

	signers := make([]party.ID, len(signerIDs))
	for i, s := range signerIDs {
		signers[i] = party.ID(s)
	}

	sig, err := g.Sign(signers, message)
	if err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}
	sigBytes, err := sig.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(hex.EncodeToString(sigBytes)), 0o644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}
	fmt.Printf("Signature saved to: %s\n", outputFile)
	return nil
}

func runTransition(cmd *cobra.Command, args []string) error {
	if len(addMembers) == 0 && len(removeIDs) == 0 && newThreshold == 0 {
		return fmt.Errorf("must specify --add, --remove, or --new-threshold")
	}
	g, err := loadGroup()
	if err != nil {
		return err
	}

	next := g.Members()
	for _, id := range removeIDs {
		next = next.Remove(party.ID(id))
	}
	added := make([]party.ID, len(addMembers))
	for i, id := range addMembers {
		added[i] = party.ID(id)
	}
	next = next.Union(party.NewIDSlice(added))

	t := newThreshold
	if t == 0 {
		t = g.Threshold()
	}

	if err := g.RequestTransition(next, t); err != nil {
		return fmt.Errorf("transition failed: %w", err)
	}
	if err := clearConfigs(); err != nil {
		return err
	}
	if err := saveConfigs(g); err != nil {
		return err
	}
	fmt.Printf("Transition complete: generation %d, %d members, threshold %d\n",
		g.Generation(), len(g.Members()), g.Threshold())
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	group, err := getCurve(curveType)
	if err != nil {
		return err
	}
	message, err := getMessage(cmd)
	if err != nil {
		return err
	}

	sigFile, _ := cmd.Flags().GetString("signature")
	sigHex, err := os.ReadFile(sigFile)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	sigBytes, err := hex.DecodeString(strings.TrimSpace(string(sigHex)))
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	sig := schnorr.EmptySignature(group)
	if err := sig.UnmarshalBinary(sigBytes); err != nil {
		return err
	}

	pkHex, _ := cmd.Flags().GetString("public-key")
	pkBytes, err := hex.DecodeString(pkHex)
	if err != nil {
		return fmt.Errorf("failed to decode public key: %w", err)
	}
	publicKey, err := curve.PointFromBytes(group, pkBytes)
	if err != nil {
		return err
	}

	if !sig.Verify(publicKey, schnorr.MessageDigest(message)) {
		fmt.Println("signature is INVALID")
		return fmt.Errorf("invalid signature")
	}
	fmt.Println("signature is valid")
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	group, err := getCurve(curveType)
	if err != nil {
		return err
	}

	ids := make([]party.ID, members)
	for i := range ids {
		ids[i] = party.ID(fmt.Sprintf("member-%d", i+1))
	}

	pl := pool.NewPool(0)
	defer pl.TearDown()

	fmt.Printf("Generating %d-of-%d key...\n", threshold, members)
	g, err := dkm.NewGroup(group, ids, threshold, dkm.WithTimeout(timeout), dkm.WithPool(pl))
	if err != nil {
		return err
	}
	keyBytes, _ := g.GroupKey().MarshalBinary()
	fmt.Printf("Group public key: %s\n", hex.EncodeToString(keyBytes))

	message := []byte("consortium lifecycle check")
	sig, err := g.Sign(ids[:threshold], message)
	if err != nil {
		return err
	}
	fmt.Printf("Signed with founding quorum %v: valid=%v\n",
		[]party.ID(ids[:threshold]), sig.Verify(g.GroupKey(), schnorr.MessageDigest(message)))

	// swap one member out and one in
	newcomer := party.ID(fmt.Sprintf("member-%d", members+1))
	next := g.Members().Remove(ids[0]).Union(party.IDSlice{newcomer})
	fmt.Printf("Transition: -%v +%v\n", ids[0], newcomer)
	if err := g.RequestTransition(next, threshold); err != nil {
		return err
	}
	keyAfter, _ := g.GroupKey().MarshalBinary()
	fmt.Printf("Generation %d, group public key unchanged: %v\n",
		g.Generation(), hex.EncodeToString(keyAfter) == hex.EncodeToString(keyBytes))

	sig, err = g.Sign(g.Members()[:threshold], message)
	if err != nil {
		return err
	}
	fmt.Printf("Signed with new quorum %v: valid=%v\n",
		[]party.ID(g.Members()[:threshold]), sig.Verify(g.GroupKey(), schnorr.MessageDigest(message)))
	return nil
}

// Helper functions

func getCurve(curveType string) (curve.Curve, error) {
	switch strings.ToLower(curveType) {
	case "secp256k1":
		return curve.Secp256k1{}, nil
	default:
		return nil, fmt.Errorf("unknown curve: %s", curveType)
	}
}

func getMessage(cmd *cobra.Command) ([]byte, error) {
	if messageFile != "" {
		message, err := os.ReadFile(messageFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		return message, nil
	}
	if messageHex != "" {
		message, err := hex.DecodeString(messageHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		return message, nil
	}
	return nil, fmt.Errorf("either --message or --message-file must be specified")
}

func saveConfigs(g *dkm.Group) error {
	for _, id := range g.Members() {
		c, err := g.Config(id)
		if err != nil {
			return err
		}
		data, err := c.MarshalBinary()
		if err != nil {
			return err
		}
		path := filepath.Join(configDir, fmt.Sprintf("%s.key", id))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write key material for %v: %w", id, err)
		}
	}
	return nil
}

func clearConfigs() error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".key" {
			if err := os.Remove(filepath.Join(configDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadGroup() (*dkm.Group, error) {
	group, err := getCurve(curveType)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var configs []*config.Config
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".key" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(configDir, e.Name()))
		if err != nil {
			return nil, err
		}
		c := &config.Config{Group: group}
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("invalid key material in %s: %w", e.Name(), err)
		}
		configs = append(configs, c)
	}
	return dkm.NewGroupFromConfigs(configs, dkm.WithTimeout(timeout))
}
