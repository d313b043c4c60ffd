// Package client is a Go client for the chatbot HTTP API.
//
// Typical streaming usage:
//
//	c := client.New("http://localhost:8080")
//	body, err := c.SendMessage(ctx, &client.ChatRequest{Message: "Olá!"})
//	if err != nil {
//		return err
//	}
//	defer body.Close()
//
//	err = client.ProcessStream(body, client.StreamHandler{
//		OnChunk: func(s string) { fmt.Print(s) },
//		OnDone:  func(convID, msgID string) { fmt.Println() },
//		OnError: func(msg string) { fmt.Fprintln(os.Stderr, msg) },
//	})
//
// Conversation management methods (ListConversations, GetConversation,
// CreateConversation, UpdateConversationTitle, DeleteConversation) follow the
// usual request/response shape.
package client
