package phantom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"github.com/mr-tron/base58"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Connect and sign in", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		h = newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		ctx = context.Background()
	})

	It("builds the connect link, asks for a signature and logs in", func() {
		By("building the connect link")
		Expect(h.link.Connect(ctx)).To(Succeed())
		connectURL := h.nav.last()
		u, err := url.Parse(connectURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Path).To(Equal("/ul/v1/connect"))
		q := u.Query()
		Expect(q.Get("payload")).To(BeEmpty())
		Expect(q.Get("nonce")).NotTo(BeEmpty())
		Expect(q.Get("cluster")).To(Equal("devnet"))
		Expect(q.Get("app_url")).To(Equal("https://app.example.com"))
		Expect(q.Get("redirect_link")).To(HavePrefix(testRedirect + "?flow_id="))

		pending, err := h.link.PendingFlow()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Kind).To(Equal(model.FlowConnect))

		By("handling the connect callback")
		outcome, err := h.link.Handle(ctx, h.wallet.connectReply(connectURL))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSignRequested))
		Expect(h.backend.count("/auth/wallet/challenge")).To(Equal(1))

		remote, err := h.keys.Remote()
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.PublicKey).To(Equal(h.wallet.kp.PublicKey))
		Expect(remote.Session).To(Equal(h.wallet.session))
		Expect(remote.Address).To(Equal(testAddress))

		nonce, ok := h.stored(storage.KeyChallengeNonce)
		Expect(ok).To(BeTrue())
		Expect(nonce).To(Equal(testNonce))

		By("checking the sign request")
		signURL := h.nav.last()
		Expect(signURL).To(HavePrefix("https://phantom.app/ul/v1/signMessage?"))
		sq := unwrapRelay(signURL)
		Expect(sq.Get("nonce")).NotTo(Equal(q.Get("nonce")))
		Expect(sq.Get("cluster")).To(BeEmpty())

		body := h.wallet.open(signURL)
		Expect(body).To(HaveKeyWithValue("session", h.wallet.session))
		Expect(body).To(HaveKeyWithValue("display", "utf8"))
		msg, err := base58.Decode(body["message"])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(msg)).To(Equal(testChallenge))
		Expect(h.eventTypes()).To(Equal([]model.EventType{model.EventSignRequested}))

		By("handling the signature callback without the wallet key")
		outcome, err = h.link.Handle(ctx, h.wallet.reply(signURL, `{"signature":"abc"}`, false))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeLoggedIn))

		login := h.backend.last("/auth/wallet")
		Expect(login.Auth).To(BeEmpty())
		Expect(login.Body).To(HaveKeyWithValue("provider", "phantom"))
		Expect(login.Body).To(HaveKeyWithValue("address", testAddress))
		Expect(login.Body).To(HaveKeyWithValue("signature", "abc"))
		Expect(login.Body).To(HaveKeyWithValue("nonce", testNonce))

		token, err := h.link.Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("tok-1"))

		wallets, err := h.link.Wallets()
		Expect(err).NotTo(HaveOccurred())
		Expect(wallets).To(Equal([]model.Wallet{
			{Address: "W1", Provider: "phantom"},
			{Address: "W2"},
			{Address: "C1", Custodial: true},
		}))

		_, ok = h.stored(storage.KeyChallengeNonce)
		Expect(ok).To(BeFalse())
		_, ok = h.stored(storage.KeyPendingFlow)
		Expect(ok).To(BeFalse())

		ev := h.lastEvent()
		Expect(ev.Type).To(Equal(model.EventLoginSucceeded))
		Expect(ev.Address).To(Equal(testAddress))
		Expect(ev.Wallets).To(HaveLen(3))
	})

	It("links the wallet to the logged in account with the bearer token", func() {
		h.connected()
		Expect(h.store.Set(storage.KeyAuthToken, "existing")).To(Succeed())
		h.backend.setLogin(http.StatusOK, `{"wallets":[{"address":"W9"}]}`)

		Expect(h.link.RequestSignIn(ctx)).To(Succeed())
		_, err := h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `{"signature":"abc"}`, false))
		Expect(err).NotTo(HaveOccurred())

		Expect(h.backend.last("/auth/wallet").Auth).To(Equal("Bearer existing"))
		token, _ := h.link.Token()
		Expect(token).To(Equal("existing"))
	})

	DescribeTable("classifies backend login failures",
		func(status int, body string, want LoginFailureReason) {
			h.connected()
			h.backend.setLogin(status, body)
			Expect(h.link.RequestSignIn(ctx)).To(Succeed())

			outcome, err := h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `{"signature":"abc"}`, false))
			Expect(err).To(HaveOccurred())
			Expect(outcome).To(Equal(OutcomeLoginFailed))

			ev := h.lastEvent()
			Expect(ev.Type).To(Equal(model.EventLoginFailed))
			Expect(ev.Reason).To(Equal(string(want)))

			_, ok := h.stored(storage.KeyAuthToken)
			Expect(ok).To(BeFalse())
			_, ok = h.stored(storage.KeyChallengeNonce)
			Expect(ok).To(BeFalse())
		},
		Entry("already linked", http.StatusConflict, `{"error":"Wallet already linked to another account"}`, ReasonWalletAlreadyLinked),
		Entry("bad signature", http.StatusUnauthorized, `{"error":"Invalid signature"}`, ReasonInvalidSignature),
		Entry("expired nonce", http.StatusUnauthorized, `{"error":"Nonce expired, request a new challenge"}`, ReasonExpiredNonce),
		Entry("anything else", http.StatusInternalServerError, `{"error":"database unavailable"}`, ReasonGeneric),
	)

	It("rejects a connect result with an unusable address", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		cb := h.wallet.reply(h.nav.last(), `{"session":"s","public_key":"k"}`, true)

		outcome, err := h.link.Handle(ctx, cb)
		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeConnectFailed))
		Expect(h.backend.all()).To(BeEmpty())
	})
})

var _ = Describe("Sign and submit", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		h = newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		ctx = context.Background()
		h.connected()
		Expect(h.store.Set(storage.KeyAuthToken, "tok-1")).To(Succeed())
	})

	It("persists the gatcha context before navigating and confirms the signed transaction", func() {
		var atNavigate *model.PendingFlowContext
		h.nav.onNavigate = func(string) {
			atNavigate, _ = h.link.PendingFlow()
		}

		Expect(h.link.StartGatcha(ctx, "P1", "M1", "UNSIGNEDTX")).To(Succeed())
		Expect(atNavigate).NotTo(BeNil())
		Expect(atNavigate.Kind).To(Equal(model.FlowGatcha))
		Expect(atNavigate.PackID).To(Equal("P1"))
		Expect(atNavigate.MintAddress).To(Equal("M1"))

		outbound := h.nav.last()
		Expect(outbound).To(HavePrefix("https://phantom.app/ul/v1/signTransaction?"))
		Expect(h.wallet.open(outbound)).To(Equal(map[string]string{"session": h.wallet.session, "transaction": "UNSIGNEDTX"}))

		outcome, err := h.link.Handle(ctx, h.wallet.reply(outbound, `{"transaction":"sig1"}`, false))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSubmitted))

		call := h.backend.last("/gatcha/P1/confirm")
		Expect(call.Method).To(Equal(http.MethodPost))
		Expect(call.Auth).To(Equal("Bearer tok-1"))
		Expect(call.Body).To(Equal(map[string]any{"mintAddress": "M1", "signedTx": "sig1"}))

		ev := h.lastEvent()
		Expect(ev.Type).To(Equal(model.EventMintResult))
		Expect(ev.FlowID).To(Equal(atNavigate.FlowID))
		Expect(string(ev.Result)).To(ContainSubstring(`"ok":true`))

		pending, err := h.link.PendingFlow()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeNil())
	})

	DescribeTable("routes each submit flow to its confirm endpoint",
		func(start func(*Link) error, path string, body map[string]any, event model.EventType) {
			Expect(start(h.link)).To(Succeed())

			outcome, err := h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `{"transaction":"signed"}`, false))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(OutcomeSubmitted))
			Expect(h.backend.last(path).Body).To(Equal(body))
			Expect(h.lastEvent().Type).To(Equal(event))
		},
		Entry("sell", func(l *Link) error { return l.StartSell(context.Background(), "M2", "1.50", "SOL", "TX") },
			"/auth/nft/M2/confirm", map[string]any{"signedTx": "signed", "price": "1.5", "symbol": "SOL"}, model.EventSaleConfirmed),
		Entry("buy", func(l *Link) error { return l.StartBuy(context.Background(), "M3", "TX") },
			"/auth/nft/M3/confirm-buy", map[string]any{"signedTx": "signed"}, model.EventPurchaseConfirmed),
		Entry("withdraw", func(l *Link) error { return l.StartWithdraw(context.Background(), "WD1", "TX") },
			"/withdraw/confirm", map[string]any{"withdrawId": "WD1", "signedTx": "signed"}, model.EventWithdrawConfirmed),
	)

	It("reports a failed confirm and clears the flow", func() {
		h.backend.setConfirmStatus(http.StatusBadRequest)
		Expect(h.link.StartBuy(ctx, "M3", "TX")).To(Succeed())

		outcome, err := h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `{"transaction":"signed"}`, false))
		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSubmitFailed))

		ev := h.lastEvent()
		Expect(ev.Type).To(Equal(model.EventSubmitFailed))
		Expect(ev.Flow).To(Equal(model.FlowBuy))
		Expect(ev.Message).To(Equal("transaction expired"))

		pending, _ := h.link.PendingFlow()
		Expect(pending).To(BeNil())
	})

	It("refuses to start a submit flow before connect", func() {
		Expect(h.keys.Reset()).To(Succeed())
		err := h.link.StartBuy(ctx, "M3", "TX")
		Expect(errors.Is(err, session.ErrNotConnected)).To(BeTrue())
		Expect(h.nav.count()).To(Equal(0))
	})

	It("rejects invalid flow input", func() {
		Expect(h.link.StartSell(ctx, "M2", "-1", "SOL", "TX")).NotTo(Succeed())
		Expect(h.link.StartGatcha(ctx, "P1", "", "TX")).NotTo(Succeed())
		Expect(h.link.StartBuy(ctx, "M3", "")).NotTo(Succeed())
		Expect(h.nav.count()).To(Equal(0))
	})

	It("does not use an expired flow context", func() {
		Expect(h.link.StartBuy(ctx, "M3", "TX")).To(Succeed())
		outbound := h.nav.last()
		h.now = h.now.Add(31 * time.Minute)

		outcome, err := h.link.Handle(ctx, h.wallet.reply(outbound, `{"transaction":"signed"}`, false))
		Expect(errors.Is(err, ErrUnknownPayload)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeUnknown))
		Expect(h.backend.count("/auth/nft/M3/confirm-buy")).To(Equal(0))

		pending, _ := h.link.PendingFlow()
		Expect(pending).To(BeNil())
	})

	It("leaves a newer flow alone when an old callback arrives", func() {
		Expect(h.link.StartBuy(ctx, "M3", "TX")).To(Succeed())
		stale := h.wallet.reply(h.nav.last(), `{"transaction":"old"}`, false)

		Expect(h.link.StartWithdraw(ctx, "WD1", "TX")).To(Succeed())
		current, _ := h.link.PendingFlow()

		outcome, err := h.link.Handle(ctx, stale)
		Expect(errors.Is(err, ErrUnknownPayload)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeUnknown))
		Expect(h.backend.count("/withdraw/confirm")).To(Equal(0))

		still, _ := h.link.PendingFlow()
		Expect(still).NotTo(BeNil())
		Expect(still.FlowID).To(Equal(current.FlowID))

		outcome, err = h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `{"transaction":"new"}`, false))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSubmitted))
	})

	It("keeps a newer withdraw flow when an old sign in callback logs in", func() {
		Expect(h.link.RequestSignIn(ctx)).To(Succeed())
		stale := h.wallet.reply(h.nav.last(), `{"signature":"abc"}`, false)

		Expect(h.link.StartWithdraw(ctx, "WD1", "TX")).To(Succeed())
		withdraw := h.nav.last()
		current, _ := h.link.PendingFlow()

		outcome, err := h.link.Handle(ctx, stale)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeLoggedIn))

		still, _ := h.link.PendingFlow()
		Expect(still).NotTo(BeNil())
		Expect(still.FlowID).To(Equal(current.FlowID))

		outcome, err = h.link.Handle(ctx, h.wallet.reply(withdraw, `{"transaction":"signed"}`, false))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSubmitted))
		Expect(h.backend.count("/withdraw/confirm")).To(Equal(1))
	})

	It("keeps a newer flow when an old connect callback fails", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		stale := h.wallet.reply(h.nav.last(), `{"session":"s","public_key":"k"}`, true)

		Expect(h.link.StartBuy(ctx, "M3", "TX")).To(Succeed())
		current, _ := h.link.PendingFlow()

		outcome, err := h.link.Handle(ctx, stale)
		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeConnectFailed))

		still, _ := h.link.PendingFlow()
		Expect(still).NotTo(BeNil())
		Expect(still.FlowID).To(Equal(current.FlowID))
	})
})

var _ = Describe("Callback guards", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		h = newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		ctx = context.Background()
	})

	It("handles an identical callback only once", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		cb := h.wallet.connectReply(h.nav.last())

		outcome, err := h.link.Handle(ctx, cb)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSignRequested))

		outcome, err = h.link.Handle(ctx, cb)
		Expect(errors.Is(err, ErrDuplicateCallback)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeRejected))
		Expect(h.backend.count("/auth/wallet/challenge")).To(Equal(1))
	})

	It("lets a repeated callback with a signature parameter through", func() {
		h.connected()
		Expect(h.link.RequestSignIn(ctx)).To(Succeed())
		cb := h.wallet.reply(h.nav.last(), `{"signature":"abc"}`, false) + "&signature=abc"

		Expect(h.link.Handle(ctx, cb)).To(Equal(OutcomeLoggedIn))
		outcome, _ := h.link.Handle(ctx, cb)
		Expect(outcome).NotTo(Equal(OutcomeRejected))
		Expect(h.backend.count("/auth/wallet")).To(Equal(2))
	})

	It("never decrypts or calls the backend for a wallet error", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		cb := h.wallet.reject(h.nav.last(), "4001", "User rejected the request")

		outcome, err := h.link.Handle(ctx, cb)
		var werr *deeplink.WalletError
		Expect(errors.As(err, &werr)).To(BeTrue())
		Expect(werr.Code).To(Equal("4001"))
		Expect(outcome).To(Equal(OutcomeWalletError))
		Expect(h.backend.all()).To(BeEmpty())

		ev := h.lastEvent()
		Expect(ev.Type).To(Equal(model.EventWalletError))
		Expect(ev.Flow).To(Equal(model.FlowConnect))
		Expect(ev.Message).To(Equal("User rejected the request"))

		pending, _ := h.link.PendingFlow()
		Expect(pending).To(BeNil())
	})

	It("fails to decrypt without any wallet key", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		cb := h.wallet.reply(h.nav.last(), `{"signature":"abc"}`, false)

		outcome, err := h.link.Handle(ctx, cb)
		Expect(errors.Is(err, session.ErrNotConnected)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeDecryptFailed))
		Expect(h.backend.all()).To(BeEmpty())
	})

	It("fails on a payload sealed for someone else", func() {
		h.connected()
		Expect(h.link.RequestSignIn(ctx)).To(Succeed())
		other := newFakeWallet()
		cb := other.reply(h.nav.last(), `{"signature":"abc"}`, false)

		outcome, err := h.link.Handle(ctx, cb)
		Expect(errors.Is(err, crypto.ErrDecrypt)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeDecryptFailed))
		Expect(h.backend.count("/auth/wallet")).To(Equal(0))
	})

	It("fails on a body that is not JSON", func() {
		h.connected()
		Expect(h.link.RequestSignIn(ctx)).To(Succeed())

		outcome, err := h.link.Handle(ctx, h.wallet.reply(h.nav.last(), `not json`, false))
		Expect(errors.Is(err, deeplink.ErrPayloadParse)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeParseFailed))
	})

	It("ignores urls for other apps and clears the pending marker", func() {
		Expect(h.store.Set(storage.KeyPendingURL, "https://elsewhere.example/cb")).To(Succeed())
		outcome, err := h.link.Handle(ctx, "https://elsewhere.example/cb?data=x")
		Expect(errors.Is(err, deeplink.ErrNotCallback)).To(BeTrue())
		Expect(outcome).To(Equal(OutcomeRejected))

		_, ok := h.stored(storage.KeyPendingURL)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Ingestion", func() {
	var (
		h      *harness
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		h = newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)
	})

	It("processes a callback delivered by both url-open and resume once", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		cb := h.wallet.connectReply(h.nav.last())

		Expect(h.link.StashPendingURL(cb)).To(Succeed())
		Expect(h.link.Open(cb)).To(Succeed())

		done := make(chan error, 1)
		go func() { done <- h.link.Run(ctx) }()

		Eventually(func() int { return h.backend.count("/auth/wallet/challenge") }).Should(Equal(1))
		Eventually(func() bool { _, ok := h.stored(storage.KeyPendingURL); return ok }).Should(BeFalse())
		Consistently(func() int { return h.backend.count("/auth/wallet/challenge") }, 100*time.Millisecond).Should(Equal(1))

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("picks up a callback captured by the bridge page", func() {
		Expect(h.link.Connect(ctx)).To(Succeed())
		Expect(h.store.Set(storage.KeyBridgeURL, h.wallet.connectReply(h.nav.last()))).To(Succeed())

		go func() { _ = h.link.Run(ctx) }()

		Eventually(func() []model.EventType { return h.eventTypes() }).Should(ContainElement(model.EventSignRequested))
		_, ok := h.stored(storage.KeyBridgeURL)
		Expect(ok).To(BeFalse())
	})

	It("only stashes callback urls", func() {
		Expect(h.link.StashPendingURL("https://elsewhere.example")).To(MatchError(deeplink.ErrNotCallback))
		found, err := h.link.Resume()
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("reports a full queue", func() {
		var err error
		for i := 0; i <= queueSize && err == nil; i++ {
			err = h.link.Open(testRedirect)
		}
		Expect(err).To(MatchError(ErrQueueFull))
	})
})

var _ = Describe("Platforms", func() {
	ctx := context.Background()

	It("sends links through the relay page on web-mobile", func() {
		h := newHarness(config.PlatformWebMobile)
		DeferCleanup(h.close)

		Expect(h.link.Connect(ctx)).To(Succeed())
		relayed := h.nav.last()
		Expect(relayed).To(HavePrefix(testRelay + "?target="))
		u, _ := url.Parse(relayed)
		Expect(u.Query().Get("target")).To(HavePrefix("https://phantom.app/ul/v1/connect?"))

		outcome, err := h.link.Handle(ctx, h.wallet.connectReply(relayed))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeSignRequested))
		Expect(h.nav.last()).To(HavePrefix(testRelay))
	})

	It("returns a connect url without navigating", func() {
		h := newHarness(config.PlatformNative)
		DeferCleanup(h.close)

		link, err := h.link.ConnectURL()
		Expect(err).NotTo(HaveOccurred())
		Expect(link).To(HavePrefix("https://phantom.app/ul/v1/connect?"))
		Expect(h.nav.count()).To(Equal(0))
		pending, _ := h.link.PendingFlow()
		Expect(pending.Kind).To(Equal(model.FlowConnect))
	})

	It("surfaces an unreachable wallet and drops the flow", func() {
		h := newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		h.nav.err = errors.New("no app handles phantom links")

		err := h.link.Connect(ctx)
		Expect(errors.Is(err, ErrWalletUnreachable)).To(BeTrue())
		pending, _ := h.link.PendingFlow()
		Expect(pending).To(BeNil())
	})

	It("needs an extension provider on desktop", func() {
		h := newHarness(config.PlatformDesktop)
		DeferCleanup(h.close)
		h.connected()

		Expect(h.link.Connect(ctx)).To(MatchError(ErrProviderUnavailable))
		Expect(h.link.StartBuy(ctx, "M3", "TX")).To(MatchError(ErrProviderUnavailable))
		Expect(errors.Is(ErrProviderUnavailable, ErrWalletUnreachable)).To(BeFalse())
		Expect(h.nav.count()).To(Equal(0))
	})

	It("logs in and submits through the extension on desktop", func() {
		ext := &fakeExtension{address: testAddress, signature: "extsig", signedTx: "extsigned"}
		h := newHarness(config.PlatformDesktop, WithExtension(ext))
		DeferCleanup(h.close)

		Expect(h.link.Connect(ctx)).To(Succeed())
		Expect(ext.messages).To(HaveLen(1))
		Expect(string(ext.messages[0])).To(Equal(testChallenge))
		Expect(h.backend.last("/auth/wallet").Body).To(HaveKeyWithValue("signature", "extsig"))
		Expect(h.lastEvent().Type).To(Equal(model.EventLoginSucceeded))

		Expect(h.link.StartBuy(ctx, "M3", "UNSIGNED")).To(Succeed())
		Expect(ext.txs).To(Equal([]string{"UNSIGNED"}))
		call := h.backend.last("/auth/nft/M3/confirm-buy")
		Expect(call.Auth).To(Equal("Bearer tok-1"))
		Expect(call.Body).To(HaveKeyWithValue("signedTx", "extsigned"))
		Expect(h.nav.count()).To(Equal(0))
	})
})

var _ = Describe("Reset", func() {
	It("disconnects the wallet and forgets the session", func() {
		ctx := context.Background()
		h := newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		h.connected()
		Expect(h.store.Set(storage.KeyAuthToken, "tok-1")).To(Succeed())
		before, _ := h.keys.PublicKey()

		Expect(h.link.Reset(ctx, true)).To(Succeed())

		disconnect := h.nav.last()
		Expect(disconnect).To(HavePrefix("https://phantom.app/ul/v1/disconnect?"))
		Expect(h.wallet.open(disconnect)).To(Equal(map[string]string{"session": h.wallet.session}))

		for _, key := range []string{storage.KeyAuthToken, storage.KeyRemotePublicKey, storage.KeySession, storage.KeyDappSecretKey} {
			_, ok := h.stored(key)
			Expect(ok).To(BeFalse(), key)
		}
		after, _ := h.keys.PublicKey()
		Expect(after).NotTo(Equal(before))
	})

	It("still resets when the disconnect cannot be delivered", func() {
		ctx := context.Background()
		h := newHarness(config.PlatformNative)
		DeferCleanup(h.close)
		h.connected()
		h.nav.err = errors.New("gone")

		Expect(h.link.Reset(ctx, true)).NotTo(Succeed())
		_, err := h.keys.Remote()
		Expect(errors.Is(err, session.ErrNotConnected)).To(BeTrue())
	})
})

var _ = Describe("ClassifyLoginFailure", func() {
	It("treats transport errors as generic", func() {
		Expect(ClassifyLoginFailure(errors.New("dial tcp: connection refused"))).To(Equal(ReasonGeneric))
	})

	It("matches the backend message case insensitively", func() {
		err := fmt.Errorf("wallet login failed: %w", &client.BackendError{Status: http.StatusUnauthorized, Message: "SIGNATURE VERIFICATION FAILED"})
		Expect(ClassifyLoginFailure(err)).To(Equal(ReasonInvalidSignature))
	})
})
