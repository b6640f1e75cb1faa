package server

import (
	"fmt"
	"net/http"
	"testing"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentThread(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.newUser(t, "lena", models.RoleUser)
	_, aliceToken := ts.newUser(t, "alice", models.RoleUser)
	post := seedPosts(t, ts, owner.ID, "discuss this")[0]

	resp := ts.do(t, http.MethodPost, "/comments", aliceToken, CreateCommentRequest{PostID: post.ID, Content: "top level"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	top := decode[models.CommentView](t, resp)
	assert.Equal(t, "alice", top.Username)
	assert.Nil(t, top.ParentCommentID)

	resp = ts.do(t, http.MethodPost, "/comments", ownerToken, CreateCommentRequest{
		PostID:          post.ID,
		Content:         "a reply",
		ParentCommentID: &top.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reply := decode[models.CommentView](t, resp)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, top.ID, *reply.ParentCommentID)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/comments/post/%d", post.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[models.PagedView[models.CommentView]](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, top.ID, page.Items[0].ID)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/comments/%d/replies", top.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replies := decode[[]models.CommentView](t, resp)
	require.Len(t, replies, 1)
	assert.Equal(t, "a reply", replies[0].Content)

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/comments/%d/like", top.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[LikeResponse](t, resp).Liked)

	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/comments/%d", top.ID), ownerToken, UpdateCommentRequest{Content: "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/comments/%d", top.ID), aliceToken, UpdateCommentRequest{Content: "edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "edited", decode[models.CommentView](t, resp).Content)

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/comments/%d", top.ID), ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/comments/%d", top.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/comments/%d/replies", top.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateComment_Rejections(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.newUser(t, "mona", models.RoleUser)
	post := seedPosts(t, ts, owner.ID, "a post here")[0]

	tests := []struct {
		name   string
		req    CreateCommentRequest
		status int
	}{
		{"missing post", CreateCommentRequest{Content: "x"}, http.StatusBadRequest},
		{"unknown post", CreateCommentRequest{PostID: 999, Content: "x"}, http.StatusNotFound},
		{"blank content", CreateCommentRequest{PostID: post.ID, Content: "   "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/comments", token, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
